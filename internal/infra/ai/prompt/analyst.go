package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/seller-hub/internal/domain/analysis"
)

// Book maps analysis categories to system prompts for one provider family.
type Book struct {
	Default analysis.Type
	Prompts map[analysis.Type]string
}

// System returns the instruction text for t, or the book's default
// category text when t is unknown.
func (b Book) System(t analysis.Type) (string, analysis.Type) {
	if p, ok := b.Prompts[t]; ok {
		return p, t
	}
	return b.Prompts[b.Default], b.Default
}

var general = map[analysis.Type]string{
	analysis.TypeDiagnosis: `Você é um especialista em e-commerce e análise de anúncios do Mercado Livre.
Analise profundamente o anúncio fornecido e identifique problemas, oportunidades e gere recomendações estratégicas.
Foque em: SEO, preço, concorrência, descrição, atributos e positioning.`,

	analysis.TypeCopywriting: `Você é um copywriter especialista em e-commerce brasileiro.
Crie títulos, descrições e textos otimizados para o Mercado Livre.
Foque em: palavras-chave, conversão, SEO local e compliance com regras do ML.`,

	analysis.TypeBenchmarking: `Você é um analista de mercado especializado em e-commerce.
Compare o produto com concorrentes e gere insights competitivos.
Foque em: análise comparativa, gaps de mercado, oportunidades e posicionamento.`,

	analysis.TypeSimulation: `Você é um cientista de dados especializado em e-commerce.
Use dados históricos e padrões de mercado para simular impactos de mudanças.
Foque em: previsões, métricas, probabilidades e ROI estimado.`,

	analysis.TypeAutomation: `Você é um especialista em automação de e-commerce.
Gere scripts, regras e automações para otimizar operações.
Foque em: eficiência, escalabilidade e automação de processos.`,
}

var quantitative = map[analysis.Type]string{
	analysis.TypeBenchmarking: `Você é um analista quantitativo especializado em benchmarking de e-commerce.
Analise dados de produtos e concorrentes, gere comparações detalhadas e métricas precisas.
Retorne análises estruturadas com dados, percentuais e rankings.`,

	analysis.TypeSimulation: `Você é um especialista em modelagem preditiva para e-commerce.
Use dados históricos e padrões de mercado para gerar simulações e previsões precisas.
Foque em: impacto quantitativo, probabilidades e cenários baseados em dados.`,

	analysis.TypeAutomation: `Você é um engenheiro de automação especializado em e-commerce.
Gere códigos, scripts e automações eficientes para otimizar processos.
Foque em: soluções técnicas, APIs e automação de tarefas repetitivas.`,

	analysis.TypeDiagnosis: `Você é um analista de dados especializado em diagnóstico de performance.
Analise métricas, identifique padrões e gere insights baseados em dados.
Foque em: análise quantitativa, KPIs e identificação de problemas.`,

	analysis.TypeCopywriting: `Você é um analista de conteúdo focado em otimização baseada em dados.
Analise textos, títulos e descrições usando métricas e benchmarks.
Foque em: análise de performance de texto e otimização data-driven.`,
}

var books = map[analysis.Family]Book{
	analysis.FamilyOpenAI:   {Default: analysis.TypeDiagnosis, Prompts: general},
	analysis.FamilyGoogle:   {Default: analysis.TypeDiagnosis, Prompts: general},
	analysis.FamilyDeepSeek: {Default: analysis.TypeBenchmarking, Prompts: quantitative},
}

// ForFamily returns the prompt book used for a provider family.
func ForFamily(f analysis.Family) Book {
	return books[f]
}

// GetUserPrompt embeds the serialized product payload and the free-text prompt.
func GetUserPrompt(productData json.RawMessage, userPrompt string) string {
	return fmt.Sprintf("Dados do produto: %s\n\nPrompt: %s", compact(productData), userPrompt)
}

func compact(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		// not JSON, send as-is
		return string(raw)
	}
	return buf.String()
}
