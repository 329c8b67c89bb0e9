// In file: internal/tools/web_tools.go
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dileep-u-k/pmo-assistant/internal/completion"
	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// Registry ids and defaults of the tools that pass an external API reply through.
const (
	BraveSearchID = "brave-search"
	JinaScraperID = "jina-scraper"
	DifyRAGID     = "dify-rag"

	DefaultBraveBaseURL = "https://api.search.brave.com/res/v1/web/search"
	DefaultJinaBaseURL  = "https://r.jina.ai"

	BraveAPIKeyEnv = "BRAVE_API_KEY"
	JinaAPIKeyEnv  = "JINA_API_KEY"
	DifyAPIKeyEnv  = "DIFY_API_KEY"

	difyUser       = "pmo-assistant"
	webToolTimeout = 20 * time.Second
)

// WebConfig configures a pass-through web tool. Empty fields use defaults.
type WebConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *logging.Logger
}

type webTool struct {
	def        Definition
	baseURL    string
	keyEnv     string
	httpClient *http.Client
	logger     *logging.Logger
}

func newWebTool(def Definition, keyEnv, defaultBase string, cfg WebConfig) webTool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = webToolTimeout
	}
	return webTool{
		def:        def,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keyEnv:     keyEnv,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.OrSilent(cfg.Logger),
	}
}

func (w *webTool) Definition() Definition { return w.def }

// apiKey reads the credential at call time so a key added after start-up is
// picked up without a restart.
func (w *webTool) apiKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(w.keyEnv))
	if key == "" {
		return "", &completion.ConfigurationError{Variable: w.keyEnv}
	}
	return key, nil
}

// do sends req and returns the body of a 2xx reply. The transport asks for
// gzip and decompresses on its own.
func (w *webTool) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", w.def.ID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", w.def.ID, err)
	}

	w.logger.Debug().Str("tool", w.def.ID).Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("web tool request finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w", w.def.ID, &completion.UpstreamError{StatusCode: resp.StatusCode, Body: string(data)})
	}
	return data, nil
}

// --- brave-search ---

// BraveSearch runs a Brave web search and returns the raw search JSON.
type BraveSearch struct{ webTool }

var _ ToolExecutor = (*BraveSearch)(nil)

// NewBraveSearch creates the brave-search tool.
func NewBraveSearch(cfg WebConfig) *BraveSearch {
	def := Definition{
		ID:          BraveSearchID,
		Description: "Searches the web and returns related pages and information for the query.",
		InputSchema: schema.Object(map[string]*schema.JSONSchema{
			"query": schema.String("Search query"),
		}, "query"),
	}
	return &BraveSearch{newWebTool(def, BraveAPIKeyEnv, DefaultBraveBaseURL, cfg)}
}

// Execute implements ToolExecutor.
func (t *BraveSearch) Execute(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("%s: decode arguments: %w", t.def.ID, err)
	}
	key, err := t.apiKey()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.def.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?q="+url.QueryEscape(args.Query), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", t.def.ID, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", key)

	data, err := t.do(req)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%s: decode search results: %w", t.def.ID, err)
	}
	return result, nil
}

// --- jina-scraper ---

// JinaScraper fetches a page through the Jina reader. The reply is returned
// as JSON when it parses and as plain text otherwise.
type JinaScraper struct{ webTool }

var _ ToolExecutor = (*JinaScraper)(nil)

// NewJinaScraper creates the jina-scraper tool.
func NewJinaScraper(cfg WebConfig) *JinaScraper {
	def := Definition{
		ID:          JinaScraperID,
		Description: "Scrapes the content of the given web page URL.",
		InputSchema: schema.Object(map[string]*schema.JSONSchema{
			"url": schema.String("URL of the page to scrape"),
		}, "url"),
	}
	return &JinaScraper{newWebTool(def, JinaAPIKeyEnv, DefaultJinaBaseURL, cfg)}
}

// Execute implements ToolExecutor.
func (t *JinaScraper) Execute(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("%s: decode arguments: %w", t.def.ID, err)
	}
	key, err := t.apiKey()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.def.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/"+url.QueryEscape(args.URL), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", t.def.ID, err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")

	data, err := t.do(req)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return string(data), nil
	}
	return result, nil
}

// --- dify-rag ---

// DifyRAG asks a Dify chat application, which answers from its knowledge base.
type DifyRAG struct{ webTool }

var _ ToolExecutor = (*DifyRAG)(nil)

// NewDifyRAG creates the dify-rag tool. cfg.BaseURL is the Dify API root,
// e.g. https://api.dify.ai/v1.
func NewDifyRAG(cfg WebConfig) *DifyRAG {
	def := Definition{
		ID:          DifyRAGID,
		Description: "Asks the knowledge-base (RAG) application and returns its answer.",
		InputSchema: schema.Object(map[string]*schema.JSONSchema{
			"query": schema.String("The question to ask"),
		}, "query"),
	}
	return &DifyRAG{newWebTool(def, DifyAPIKeyEnv, "", cfg)}
}

type difyRequest struct {
	Query        string         `json:"query"`
	User         string         `json:"user"`
	ResponseMode string         `json:"response_mode"`
	Inputs       map[string]any `json:"inputs"`
}

// Execute implements ToolExecutor.
func (t *DifyRAG) Execute(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("%s: decode arguments: %w", t.def.ID, err)
	}
	key, err := t.apiKey()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.def.ID, err)
	}
	if t.baseURL == "" {
		return nil, fmt.Errorf("%s: %w", t.def.ID, &completion.ConfigurationError{Variable: "DIFY_BASE_URL"})
	}

	payload, err := json.Marshal(difyRequest{
		Query:        args.Query,
		User:         difyUser,
		ResponseMode: "blocking",
		Inputs:       map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", t.def.ID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat-messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", t.def.ID, err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	data, err := t.do(req)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%s: decode answer: %w", t.def.ID, err)
	}
	return result, nil
}
