package search

import (
	"context"
	"fmt"
	"strings"
)

// Searcher is the part of Client the domain tools depend on.
type Searcher interface {
	Search(ctx context.Context, query string, count int, wantSummary bool) (Response, error)
}

const toolResultCount = 5

type domain struct {
	suffix   string
	label    string
	trailer  string
	notFound func(subject string) string
}

var (
	salary = domain{
		suffix:  "薪资 工资 待遇",
		label:   "薪酬信息",
		trailer: "\n\n参考数据来源：",
		notFound: func(subject string) string {
			return fmt.Sprintf("未找到'%s'的相关薪酬信息，请尝试更具体的查询词。", subject)
		},
	}
	company = domain{
		suffix: "公司 简介 规模 业务",
		label:  "企业信息",
		notFound: func(subject string) string {
			return fmt.Sprintf("未找到企业'%s'的相关信息，请确认企业名称是否正确。", subject)
		},
	}
	industry = domain{
		suffix: "行业 发展趋势 前景 市场需求",
		label:  "行业趋势",
		notFound: func(subject string) string {
			return fmt.Sprintf("未找到行业'%s'的相关趋势信息，请尝试更具体的关键词。", subject)
		},
	}
)

// Tools runs the salary, company and industry lookups. Every method returns
// text, failures included.
type Tools struct {
	searcher Searcher
}

// NewTools returns domain tools backed by s.
func NewTools(s Searcher) *Tools {
	return &Tools{searcher: s}
}

// SalaryInfo searches pay ranges for a role, e.g. "北京互联网产品经理".
func (t *Tools) SalaryInfo(ctx context.Context, query string) string {
	return t.lookup(ctx, salary, query)
}

// CompanyInfo searches an employer's profile, size and business.
func (t *Tools) CompanyInfo(ctx context.Context, companyName string) string {
	return t.lookup(ctx, company, companyName)
}

// IndustryTrend searches the outlook and demand of an industry or role.
func (t *Tools) IndustryTrend(ctx context.Context, industryName string) string {
	return t.lookup(ctx, industry, industryName)
}

func (t *Tools) lookup(ctx context.Context, d domain, subject string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("%s查询失败: %v", d.label, r)
		}
	}()

	res, err := t.searcher.Search(ctx, subject+" "+d.suffix, toolResultCount, true)
	if err != nil {
		return fmt.Sprintf("%s查询失败: %v", d.label, err)
	}

	header := d.label + "查询结果：\n\n"
	if res.Summary != "" {
		return header + res.Summary + d.trailer
	}

	items := res.Items
	if len(items) > summaryItems {
		items = items[:summaryItems]
	}
	if len(items) == 0 {
		return d.notFound(subject)
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("- %s: %s", item.Title, item.Snippet)
	}
	return header + strings.Join(lines, "\n")
}
