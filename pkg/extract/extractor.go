// Package extract drives the Gemini extraction capability against canonical
// document text and returns deduplicated telecom package records.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const systemPrompt = `Bạn là một chuyên gia nhập liệu dữ liệu đang đọc các tài liệu hợp đồng và bảng giá viễn thông Việt Nam.

NHIỆM VỤ: Trích xuất TẤT CẢ các gói cước (data, thoại, truyền hình, combo) từ tài liệu và trả về JSON.

QUY TẮC:
1. Lấy mã gói cước đúng như trong tài liệu (ví dụ "SD70", "V120", "VIP").
2. "price": chuyển thành số nguyên VND, bỏ dấu chấm/phẩy ngăn cách hàng nghìn ("80.000" -> 80000).
3. "partner_name": tên đối tác/nhà cung cấp, thường ở tiêu đề tài liệu hoặc trong bảng.
4. "service_type": Television / Internet / Mobile / Combo.
5. Bỏ qua các dòng văn bản lặp lại vô nghĩa do lỗi OCR; ưu tiên dữ liệu trong phần mô tả ảnh nếu văn bản chính bị lỗi.
6. Không bịa đặt dữ liệu; bỏ các trường không tìm thấy khỏi "attributes".

OUTPUT: một đối tượng JSON duy nhất dạng
{"packages": [{"name": "...", "partner_name": "...", "service_type": "...", "attributes": {...}}]}
Trả về CHỈ JSON, không có giải thích hay markdown code block.`

const humanPrompt = "Phân tích tài liệu sau và trích xuất tất cả các gói cước viễn thông:\n\n%s"

// generator abstracts the model call so the fallback chain is testable
// without the API. structured requests a JSON-schema-constrained reply.
type generator interface {
	Generate(ctx context.Context, prompt string, structured bool) (string, error)
}

// Extractor converts canonical text into package records. Extract never
// returns an error: total failure yields an empty slice with the cause
// logged.
type Extractor struct {
	gen generator
}

// NewExtractor builds an Extractor backed by the Gemini API.
func NewExtractor(ctx context.Context, apiKey, modelName string) (*Extractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Extractor{gen: &geminiGenerator{client: client, modelName: modelName}}, nil
}

// newWithGenerator is the test seam.
func newWithGenerator(gen generator) *Extractor { return &Extractor{gen: gen} }

// Extract runs the primary structured path and falls back to freeform
// generation plus JSON repair when the model errors out or returns nothing.
// Results are deduplicated by name within the batch; records without a name
// are dropped.
func (e *Extractor) Extract(ctx context.Context, text string) []Package {
	if strings.TrimSpace(text) == "" {
		log.Printf("extract: empty text, nothing to do")
		return nil
	}
	prompt := systemPrompt + "\n\n" + fmt.Sprintf(humanPrompt, text)

	packages, err := e.structuredPass(ctx, prompt)
	if err != nil || len(packages) == 0 {
		if err != nil {
			log.Printf("extract: structured pass failed: %v", err)
		}
		packages = e.fallbackPass(ctx, prompt)
	}

	for i := range packages {
		normalizeAttributes(packages[i].Attributes)
	}
	return dedupe(packages)
}

// structuredPass drives the model with the strict response schema and
// converts every result to the flexible form.
func (e *Extractor) structuredPass(ctx context.Context, prompt string) ([]Package, error) {
	reply, err := e.gen.Generate(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	var list strictPackageList
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &list); err != nil {
		return nil, fmt.Errorf("strict schema decode failed: %w", err)
	}

	packages := make([]Package, 0, len(list.Packages))
	for _, sp := range list.Packages {
		packages = append(packages, FromStrict(sp))
	}
	return packages, nil
}

// fallbackPass re-invokes the model without an output contract and recovers
// whatever JSON it can from the reply.
func (e *Extractor) fallbackPass(ctx context.Context, prompt string) []Package {
	log.Printf("extract: attempting fallback extraction")
	reply, err := e.gen.Generate(ctx, prompt, false)
	if err != nil {
		log.Printf("extract: fallback generation failed: %v", err)
		return nil
	}
	obj, ok := RecoverJSON(reply)
	if !ok {
		log.Printf("extract: could not recover JSON from model output: %.200s", reply)
		return nil
	}
	packages := decodePackages(obj)
	log.Printf("extract: fallback recovered %d packages", len(packages))
	return packages
}

// dedupe keeps the first occurrence of each package name.
func dedupe(packages []Package) []Package {
	seen := make(map[string]bool, len(packages))
	var unique []Package
	for _, pkg := range packages {
		if pkg.Name == "" {
			log.Printf("extract: dropping package with empty name")
			continue
		}
		if seen[pkg.Name] {
			log.Printf("extract: skipping duplicate package %s", pkg.Name)
			continue
		}
		seen[pkg.Name] = true
		unique = append(unique, pkg)
	}
	return unique
}

// geminiGenerator is the production generator implementation.
type geminiGenerator struct {
	client    *genai.Client
	modelName string
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string, structured bool) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0) // deterministic output for extraction
	if structured {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = strictResponseSchema
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

// strictResponseSchema mirrors StrictPackage for Gemini structured output.
// The capability cannot honor an open map in its output contract, hence the
// enumerated attribute fields.
var strictResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"packages": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":         {Type: genai.TypeString, Description: "Mã gói cước, ví dụ 'SD70', 'VIP'"},
					"partner_name": {Type: genai.TypeString, Description: "Tên đối tác/nhà cung cấp"},
					"service_type": {Type: genai.TypeString, Description: "Television / Internet / Mobile / Combo"},
					"attributes": {
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"price":               {Type: genai.TypeInteger, Description: "Giá một chu kỳ (VND)"},
							"billing_cycle":       {Type: genai.TypeString, Description: "Chu kỳ, ví dụ '1 tháng'"},
							"payment_type":        {Type: genai.TypeString, Description: "prepaid hoặc postpaid"},
							"data_limit":          {Type: genai.TypeString},
							"data_unit":           {Type: genai.TypeString},
							"voice_minutes":       {Type: genai.TypeString},
							"sms_count":           {Type: genai.TypeInteger},
							"speed":               {Type: genai.TypeString},
							"channels":            {Type: genai.TypeInteger},
							"promotion":           {Type: genai.TypeString},
							"auto_renew":          {Type: genai.TypeString},
							"registration_syntax": {Type: genai.TypeString},
							"notes":               {Type: genai.TypeString},
						},
					},
				},
				Required: []string{"name"},
			},
		},
	},
	Required: []string{"packages"},
}
