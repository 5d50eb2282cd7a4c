package execution

import "encoding/json"

// NoOutputPlaceholder 在程序成功但没有标准输出时返回。
const NoOutputPlaceholder = "(no output)"

// Outcome 是一次执行的结果，只有 Success、Failure、Error 三种形态。
type Outcome interface {
	isOutcome()
}

// Success 表示程序正常运行结束。
type Success struct {
	Output string   `json:"output"`
	Stderr string   `json:"stderr,omitempty"`
	Status string   `json:"status"`
	Time   string   `json:"time,omitempty"`
	Memory *float64 `json:"memory,omitempty"`
}

// Failure 表示编译失败或运行时错误。
type Failure struct {
	CompileError string `json:"compile_error"`
	Status       string `json:"status"`
}

// Error 表示传输或配置错误，未拿到执行结果。
type Error struct {
	Message string `json:"error"`
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}
func (Error) isOutcome()   {}

// MarshalOutcome 输出带 kind 标签的 JSON，字段与各形态一致。
func MarshalOutcome(o Outcome) ([]byte, error) {
	var kind string
	switch o.(type) {
	case Success:
		kind = "success"
	case Failure:
		kind = "failure"
	case Error:
		kind = "error"
	}
	body, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["kind"], _ = json.Marshal(kind)
	return json.Marshal(fields)
}

// Render 返回适合直接展示的文本。
func Render(o Outcome) string {
	switch v := o.(type) {
	case Success:
		if v.Stderr != "" {
			return v.Output + "\n" + v.Stderr
		}
		return v.Output
	case Failure:
		return v.Status + ":\n" + v.CompileError
	case Error:
		return "Error: " + v.Message
	default:
		return ""
	}
}
