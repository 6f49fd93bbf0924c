package permission

import "context"

// MockPrompter answers every Ask call with a fixed Answer, for tests.
// Each call is recorded in Requests for assertions.
type MockPrompter struct {
	Answer   Answer
	Err      error
	Requests []Request
}

func (p *MockPrompter) Ask(ctx context.Context, req Request) (Answer, error) {
	p.Requests = append(p.Requests, req)
	if p.Err != nil {
		return "", p.Err
	}
	return p.Answer, nil
}
