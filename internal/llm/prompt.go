package llm

import (
	"encoding/json"
	"fmt"

	"github.com/Rrens/invest-agent/internal/domain"
)

// Temperatures used by the composer
const (
	AnalysisTemperature = 0.3
	RoutingTemperature  = 0.1
)

// ArticlesSectionHeader names the section the fetched articles are spliced into
const ArticlesSectionHeader = "3. 🔗 Relevant Articles"

const comprehensiveSystemPrompt = "You are a PIF private equity analyst with access to internal logistics company data. " +
	"Provide a comprehensive investment analysis in exactly 3 sections:\n" +
	"1. 📊 Summary of Findings (general market insights, up to 8 bullet points)\n" +
	"2. 🏢 Insights from PIF Logistics Company Dataset (specific company analysis)\n" +
	ArticlesSectionHeader + " (I will provide current articles separately)\n\n" +
	"Use bullet points for all content. Be specific and actionable."

const routingSystemPrompt = "You are an intelligent routing assistant. Based on the user's question, determine what action to take:\n" +
	"1. If they want current articles, news, web search, or ask for 'more articles' → respond with 'SEARCH_WEB'\n" +
	"2. If they ask about companies in the dataset or previous response → respond with 'ANALYZE_DATA'\n" +
	"3. If they need to compare data with global/industry averages, benchmarks, margins, or external standards → respond with 'SEARCH_AND_ANALYZE'\n" +
	"4. If it's a general question → respond with 'GENERAL_RESPONSE'\n\n" +
	"Keywords that indicate SEARCH_AND_ANALYZE: compare, global, industry average, benchmark, market average, versus, vs, " +
	"external comparison, EBITDA margin, profit margin, industry standard, typical range\n" +
	"Only respond with one of these four options: SEARCH_WEB, ANALYZE_DATA, SEARCH_AND_ANALYZE, or GENERAL_RESPONSE"

const analyzeSystemPrompt = "You are a PIF analyst. Answer based on the company dataset provided."

const benchmarkSystemPrompt = "You are a PIF financial analyst. Compare the internal company data with external industry benchmarks. " +
	"IMPORTANT REQUIREMENTS:\n" +
	"1. Calculate specific metrics from the internal data and show your calculations\n" +
	"2. ALWAYS cite specific sources for external benchmark data using this format: " +
	"'According to [Source Name], global logistics EBITDA margins average X%'\n" +
	"3. If you cannot find specific benchmarks in the search results, use your knowledge but clearly state: " +
	"'Based on industry knowledge (typical ranges):'\n" +
	"4. Provide actionable investment insights based on the comparison\n" +
	"5. Include a 'Sources Referenced' section at the end listing all sources used\n" +
	"Use bullet points for all content."

const generalSystemPrompt = "You are a knowledgeable financial analyst. Provide helpful insights."

// BenchmarkQueries are the fixed searches issued for SEARCH_AND_ANALYZE turns
var BenchmarkQueries = []string{
	"global logistics industry EBITDA margin average benchmark 2024",
	"logistics companies profit margin industry standard",
	"transportation logistics sector financial performance metrics",
}

// FormatSample renders dataset rows as compact JSON for prompt context
func FormatSample(rows []domain.DatasetRow) string {
	if len(rows) == 0 {
		return "[]"
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Sprintf("%v", rows)
	}
	return string(data)
}

// BuildComprehensivePrompt builds the first-turn three-section analysis request
func BuildComprehensivePrompt(query string, sample []domain.DatasetRow) Request {
	return Request{
		Temperature: AnalysisTemperature,
		Messages: []Message{
			{Role: RoleSystem, Content: comprehensiveSystemPrompt},
			{Role: RoleUser, Content: fmt.Sprintf(
				"Based on both general market knowledge and this PIF logistics dataset:\n%s\n\n"+
					"User question: %s\n\n"+
					"Provide comprehensive analysis covering general market insights and specific company data insights.",
				FormatSample(sample), query)},
		},
	}
}

// BuildRoutingPrompt builds the intent classification request
func BuildRoutingPrompt(query string) Request {
	return Request{
		Temperature: RoutingTemperature,
		Messages: []Message{
			{Role: RoleSystem, Content: routingSystemPrompt},
			{Role: RoleUser, Content: "User question: " + query},
		},
	}
}

// BuildAnalyzePrompt builds the dataset-grounded follow-up request
func BuildAnalyzePrompt(query string, sample []domain.DatasetRow) Request {
	return Request{
		Temperature: AnalysisTemperature,
		Messages: []Message{
			{Role: RoleSystem, Content: analyzeSystemPrompt},
			{Role: RoleUser, Content: fmt.Sprintf(
				"Question: %s\n\nCompany data: %s\n\nProvide specific analysis.",
				query, FormatSample(sample))},
		},
	}
}

// BuildBenchmarkPrompt builds the request comparing internal data with external research
func BuildBenchmarkPrompt(query string, sample []domain.DatasetRow, research string) Request {
	return Request{
		Temperature: AnalysisTemperature,
		Messages: []Message{
			{Role: RoleSystem, Content: benchmarkSystemPrompt},
			{Role: RoleUser, Content: fmt.Sprintf(
				"Question: %s\n\n"+
					"Internal PIF dataset (sample): %s\n\n"+
					"External research results: %s\n\n"+
					"Please provide:\n"+
					"1. Calculated average EBITDA margin from internal data (show calculation)\n"+
					"2. Global logistics industry EBITDA margin benchmarks (cite specific sources)\n"+
					"3. Detailed comparison and analysis\n"+
					"4. Investment implications and recommendations\n"+
					"5. Sources Referenced section\n\n"+
					"Remember to cite every external data point with its source.",
				query, FormatSample(sample), research)},
		},
	}
}

// BuildGeneralPrompt builds a plain question request with no extra context
func BuildGeneralPrompt(query string) Request {
	return Request{
		Temperature: AnalysisTemperature,
		Messages: []Message{
			{Role: RoleSystem, Content: generalSystemPrompt},
			{Role: RoleUser, Content: query},
		},
	}
}
