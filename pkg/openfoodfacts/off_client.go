package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrUpstreamUnavailable 上游返回非 2xx、网络不可达或响应无法解析
var ErrUpstreamUnavailable = errors.New("open food facts api unavailable")

const (
	categoriesPath = "/categories.json"
	searchPath     = "/cgi/search.pl"
)

// Config 客户端配置
type Config struct {
	BaseURL    string // 默认 https://fr.openfoodfacts.org
	PageSize   int    // 默认 500
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	UserAgent  string
	Debug      bool
}

// Client Open Food Facts 客户端
type Client struct {
	http     *resty.Client
	pageSize int
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://fr.openfoodfacts.org"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.Timeout == 0 {
		// 拉取 500 条商品可能比较慢
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "purbeurre-go/1.0"
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetDebug(cfg.Debug).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4*cfg.RetryWait).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent)

	return &Client{http: client, pageSize: cfg.PageSize}
}

// FetchCategories 获取全部分类及商品数
func (c *Client) FetchCategories(ctx context.Context) ([]CategoryTag, error) {
	var res CategoriesResp
	if err := c.get(ctx, categoriesPath, nil, &res); err != nil {
		return nil, err
	}
	return res.Tags, nil
}

// FetchProductsForCategory 按分类拉取商品 (按扫描次数排序，单页)
func (c *Client) FetchProductsForCategory(ctx context.Context, categoryName string) ([]RawProduct, error) {
	params := map[string]string{
		"action":         "process",
		"tagtype_0":      "categories",
		"tag_contains_0": "contains",
		"tag_0":          categoryName,
		"sort_by":        "unique_scans_n",
		"page_size":      strconv.Itoa(c.pageSize),
		"json":           "1",
	}

	var res SearchResp
	if err := c.get(ctx, searchPath, params, &res); err != nil {
		return nil, err
	}
	return res.Records(), nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrUpstreamUnavailable, path, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: GET %s 返回状态码 %d", ErrUpstreamUnavailable, path, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: GET %s 解析响应失败: %v", ErrUpstreamUnavailable, path, err)
	}
	return nil
}

// SelectCategories 选出商品数 >= threshold 的分类，保持输入顺序
func SelectCategories(tags []CategoryTag, threshold int) []CategoryTag {
	selected := make([]CategoryTag, 0, len(tags))
	for _, tag := range tags {
		if tag.Products >= threshold {
			selected = append(selected, tag)
		}
	}
	return selected
}
