package seo

import "strings"

// RAGArticle is a curated reference article for an industry.
type RAGArticle struct {
	IndustryKeywords []string `json:"industryKeywords"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	Reason           string   `json:"reason"`
}

var photographyKeywords = []string{"photography", "camera accessories", "videography", "摄影", "相机配件", "摄像设备"}

var knowledgeBase = []RAGArticle{
	{
		IndustryKeywords: photographyKeywords,
		Title:            "2024年摄影师必备的12款相机配件",
		URL:              "https://www.dpreview.com/reviews/buying-guide-best-accessories-for-your-new-dslr",
		Reason:           `文章通过全面的清单和实用建议，有效覆盖了从入门到专业的广泛用户群体，是典型的"指南类"高流量内容。`,
	},
	{
		IndustryKeywords: photographyKeywords,
		Title:            "相机三脚架深度评测：Manfrotto vs. Gitzo，谁是王者？",
		URL:              "https://www.bhphotovideo.com/explora/photography/buying-guide/a-guide-to-tripods",
		Reason:           "通过深度对比评测，直接影响高意向用户的购买决策，精准捕获了具有商业价值的关键词。",
	},
	{
		IndustryKeywords: photographyKeywords,
		Title:            "如何清洁你的相机传感器？（附分步图解）",
		URL:              "https://photographylife.com/how-to-clean-dslr-sensor",
		Reason:           `这种"How-to"类型的内容精准解决了用户的核心痛点，极易获得长尾流量和社交媒体分享。`,
	},
}

// SearchRAG returns up to limit curated articles whose keywords appear in the
// industry description.
func SearchRAG(industry string, limit int) []RAGArticle {
	matched := []RAGArticle{}
	if industry == "" {
		return matched
	}
	industry = strings.ToLower(industry)
	for _, article := range knowledgeBase {
		for _, kw := range article.IndustryKeywords {
			if strings.Contains(industry, strings.ToLower(kw)) {
				matched = append(matched, article)
				break
			}
		}
		if len(matched) >= limit {
			break
		}
	}
	return matched
}
