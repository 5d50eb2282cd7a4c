// Package execution 把代码提交到 Judge0 并把响应归一化为 Outcome。
package execution

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// 错误信息与前端约定保持一致
const (
	msgNoCode        = "No code provided"
	msgNoAPIKey      = "Judge0 API key not configured"
	msgServiceStatus = "Compilation service error: %d"
)

// 状态 ID 大于等于该值表示编译错误或运行时错误
const firstFailureStatusID = 6

// Config 是 Judge0 客户端配置
type Config struct {
	BaseURL    string
	APIKey     string
	LanguageID int
	Timeout    time.Duration
}

// Runner 执行源代码。
type Runner interface {
	Run(ctx context.Context, code, stdin string) Outcome
}

// Client 是 Judge0 的 HTTP 客户端
type Client struct {
	cfg  Config
	http *http.Client
	log  *logrus.Entry
}

// NewClient 创建 Client 实例
func NewClient(cfg Config, log *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://judge0-ce.p.rapidapi.com"
	}
	if cfg.LanguageID == 0 {
		cfg.LanguageID = 54 // C++ (GCC 9.2.0)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.WithField("component", "execution"),
	}
}

type submission struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type submissionResult struct {
	Stdout        *string  `json:"stdout"`
	Stderr        *string  `json:"stderr"`
	CompileOutput *string  `json:"compile_output"`
	Time          *string  `json:"time"`
	Memory        *float64 `json:"memory"`
	Status        *struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

// Run 同步提交并等待结果。任何失败都转为 Error 形态，不返回 error。
func (c *Client) Run(ctx context.Context, code, stdin string) Outcome {
	if code == "" {
		return Error{Message: msgNoCode}
	}
	if c.cfg.APIKey == "" {
		return Error{Message: msgNoAPIKey}
	}

	body, err := json.Marshal(submission{
		LanguageID: c.cfg.LanguageID,
		SourceCode: base64.StdEncoding.EncodeToString([]byte(code)),
		Stdin:      encodeOptional(stdin),
	})
	if err != nil {
		return Error{Message: err.Error()}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/submissions?base64_encoded=true&wait=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Error{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	if u, err := url.Parse(c.cfg.BaseURL); err == nil {
		req.Header.Set("X-RapidAPI-Host", u.Host)
	}

	c.log.WithField("language_id", c.cfg.LanguageID).Debug("Submitting code to Judge0")
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Error("Judge0 request failed")
		return Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(text),
		}).Error("Judge0 returned an error")
		return Error{Message: fmt.Sprintf(msgServiceStatus, resp.StatusCode)}
	}

	var result submissionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Error{Message: fmt.Sprintf("failed to decode Judge0 response: %v", err)}
	}
	return normalize(result)
}

func normalize(r submissionResult) Outcome {
	output := decodeOptional(r.Stdout)
	stderr := decodeOptional(r.Stderr)
	compileOutput := decodeOptional(r.CompileOutput)
	status := "Unknown"
	statusID := 0
	if r.Status != nil {
		statusID = r.Status.ID
		if r.Status.Description != "" {
			status = r.Status.Description
		}
	}

	if statusID >= firstFailureStatusID {
		msg := compileOutput
		if msg == "" {
			msg = stderr
		}
		if msg == "" {
			msg = status
		}
		return Failure{CompileError: msg, Status: status}
	}

	if output == "" {
		output = NoOutputPlaceholder
	}
	s := Success{Output: output, Stderr: stderr, Status: status, Memory: r.Memory}
	if r.Time != nil {
		s.Time = *r.Time
	}
	return s
}

func encodeOptional(s string) string {
	if s == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// decodeOptional 解码 base64，无法解码时原样返回
func decodeOptional(s *string) string {
	if s == nil || *s == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(*s)
	if err != nil {
		return *s
	}
	return string(decoded)
}
