package tools

import (
	"context"

	"github.com/muhammadolammi/jobmatchassistant/internal/jobposting"
	"github.com/muhammadolammi/jobmatchassistant/internal/resume"
	"github.com/muhammadolammi/jobmatchassistant/internal/search"
)

const (
	SearchSalaryInfo    = "search_salary_info"
	SearchCompanyInfo   = "search_company_info"
	SearchIndustryTrend = "search_industry_trend"
	ParseResumeFile     = "parse_resume_file"
	ValidateResumeText  = "validate_resume_text"
	FetchJobPosting     = "fetch_job_posting"
)

// Default returns the assistant's tool set in the order it is offered to the
// model. A nil fetcher leaves out fetch_job_posting.
func Default(lookups *search.Tools, extractor *resume.Extractor, fetcher *jobposting.Fetcher) []Spec {
	specs := []Spec{
		stringTool{
			name:        SearchSalaryInfo,
			description: "搜索薪酬信息，返回岗位的薪资范围和参考数据来源。",
			param:       "query",
			paramDesc:   `薪酬查询关键词，例如"北京互联网产品经理薪资"或"深圳Java开发薪酬范围"`,
			fn:          lookups.SalaryInfo,
		},
		stringTool{
			name:        SearchCompanyInfo,
			description: "搜索企业信息，包括公司简介、规模和主营业务。",
			param:       "company_name",
			paramDesc:   `企业名称，例如"字节跳动"或"腾讯"`,
			fn:          lookups.CompanyInfo,
		},
		stringTool{
			name:        SearchIndustryTrend,
			description: "搜索行业趋势和岗位前景。",
			param:       "industry",
			paramDesc:   `行业名称或岗位类型，例如"互联网"、"人工智能"、"产品经理"`,
			fn:          lookups.IndustryTrend,
		},
		stringTool{
			name:        ParseResumeFile,
			description: "解析简历文件（支持Word和PDF格式），提取文本内容。",
			param:       "file_path",
			paramDesc:   `简历文件的绝对路径或对象存储地址，例如 "/tmp/resume.docx"、"/tmp/resume.pdf" 或 "r2://uploads/resume.pdf"`,
			fn:          extractor.Extract,
		},
		stringTool{
			name:        ValidateResumeText,
			description: "验证简历文本是否符合基本要求，返回长度评估和改进建议。",
			param:       "resume_text",
			paramDesc:   "简历文本内容",
			fn: func(_ context.Context, text string) string {
				return resume.Validate(text)
			},
		},
	}
	if fetcher != nil {
		specs = append(specs, stringTool{
			name:        FetchJobPosting,
			description: "读取招聘页面链接，返回岗位描述（JD）的正文文本。",
			param:       "url",
			paramDesc:   "招聘页面的 http 或 https 链接",
			fn:          fetcher.Read,
		})
	}
	return specs
}
