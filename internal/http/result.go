package httpapi

// Result is the response envelope shared by every JSON endpoint.
//   - code: 2000 on success
//   - type: "success" | "error" | "warning"
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultTokenExpired goes with HTTP 401; clients drop their token and return to login.
	ResultTokenExpired = 60401
)

// Page is the result body of every list endpoint.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Removal is the result body of every delete endpoint.
type Removal struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

// OkPage never encodes a nil slice as null.
func OkPage[T any](items []T) Result[Page[T]] {
	if items == nil {
		items = []T{}
	}
	return Ok(Page[T]{Items: items, Total: len(items)})
}

func OkRemoved(id string) Result[Removal] {
	return Ok(Removal{ID: id, Deleted: true})
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func Expired(message string) Result[any] {
	return Result[any]{Code: ResultTokenExpired, Type: "error", Message: message, Result: nil}
}
