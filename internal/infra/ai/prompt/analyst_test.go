package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/seller-hub/internal/domain/analysis"
)

func TestBook_SystemCoversEveryType(t *testing.T) {
	for _, f := range []analysis.Family{analysis.FamilyOpenAI, analysis.FamilyDeepSeek, analysis.FamilyGoogle} {
		book := ForFamily(f)
		for _, typ := range analysis.Types {
			text, used := book.System(typ)
			assert.NotEmpty(t, text, "%s/%s", f, typ)
			assert.Equal(t, typ, used)
		}
	}
}

func TestBook_SystemFallsBackToDefault(t *testing.T) {
	tests := map[string]struct {
		family   analysis.Family
		wantType analysis.Type
	}{
		"openai":   {analysis.FamilyOpenAI, analysis.TypeDiagnosis},
		"deepseek": {analysis.FamilyDeepSeek, analysis.TypeBenchmarking},
		"google":   {analysis.FamilyGoogle, analysis.TypeDiagnosis},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			book := ForFamily(tc.family)
			text, used := book.System("forecast")
			assert.Equal(t, tc.wantType, used)
			assert.Equal(t, book.Prompts[tc.wantType], text)
		})
	}
}

func TestGetUserPrompt(t *testing.T) {
	tests := map[string]struct {
		data json.RawMessage
		want string
	}{
		"object": {
			data: json.RawMessage(`{ "title": "Y",  "price": 10 }`),
			want: "Dados do produto: {\"title\":\"Y\",\"price\":10}\n\nPrompt: analise X",
		},
		"missing": {
			data: nil,
			want: "Dados do produto: null\n\nPrompt: analise X",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetUserPrompt(tc.data, "analise X"))
		})
	}
}
