package instruction

import (
	"fmt"
	"strings"

	"loveoracle/app/service/memory"

	_ "embed"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

//go:embed persona.txt
var basePersona string

var senderLabels = map[memory.Sender]string{
	memory.SenderUser:     "Người Dùng",
	memory.SenderAI:       "Thầy Bói AI",
	memory.SenderOperator: "Thầy Bói Trực Tiếp",
}

// Service builds the system instruction a new dialogue is opened with.
type Service struct{}

func New(_ *do.Injector) (*Service, error) {
	return &Service{}, nil
}

// Compose assembles the instruction from the base persona, the teacher's
// overlays and the accumulated memory, in that fixed order. Pure function;
// the full memory transcript is injected verbatim, without any truncation.
func (s *Service) Compose(promptOverlay, knowledgeOverlay string, mem []memory.Message) string {
	var builder strings.Builder

	builder.WriteString(basePersona)

	if strings.TrimSpace(promptOverlay) != "" {
		builder.WriteString(fmt.Sprintf("\n\nCHỈ DẪN PROMPT BỔ SUNG: \"%s\"", promptOverlay))
	}

	if strings.TrimSpace(knowledgeOverlay) != "" {
		builder.WriteString(fmt.Sprintf("\n\nKIẾN THỨC NỀN BỔ SUNG (DÙNG LÀM TÀI LIỆU THAM KHẢO CHÍNH): \"%s\"", knowledgeOverlay))
	}

	if len(mem) > 0 {
		lines := pie.Map(mem, func(msg memory.Message) string {
			return senderLabels[msg.Sender] + ": " + msg.Text
		})

		builder.WriteString("\n\nĐÂY LÀ LỊCH SỬ CÁC CUỘC TRÒ CHUYỆN TRƯỚC ĐÓ ĐỂ BẠN HỌC HỎI VÀ CẢI THIỆN. HÃY PHÂN TÍCH VÀ RÚT KINH NGHIỆM TỪ CHÚNG:\n---\n")
		builder.WriteString(strings.Join(lines, "\n"))
		builder.WriteString("\n---")
	}

	return builder.String()
}
