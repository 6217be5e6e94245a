package infobox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// wikipediaSummary 对应 Wikipedia REST summary 接口的精简字段。
type wikipediaSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// resultLink 从上游原始结果中只取 infobox 需要的两个字段。
type resultLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// lookupWikipedia 在前三条网页结果中寻找 Wikipedia 链接并抓取条目摘要。
func (r *Resolver) lookupWikipedia(ctx context.Context, webResults []json.RawMessage) *Infobox {
	limit := len(webResults)
	if limit > 3 {
		limit = 3
	}

	for i := 0; i < limit; i++ {
		var link resultLink
		if err := json.Unmarshal(webResults[i], &link); err != nil {
			continue
		}
		if !strings.Contains(link.URL, "wikipedia.org") {
			continue
		}

		title := strings.SplitN(link.Title, " - Wikipedia", 2)[0]
		formatted := strings.ReplaceAll(title, " ", "_")

		var summary wikipediaSummary
		url := fmt.Sprintf("%s/page/summary/%s", r.wikipediaBase, formatted)
		if !r.getJSON(ctx, url, &summary) {
			continue
		}

		return &Infobox{
			Infotype: "wikipedia",
			Title:    summary.Title,
			Info:     summary.Extract,
			URL:      summary.ContentURLs.Desktop.Page,
		}
	}
	return nil
}
