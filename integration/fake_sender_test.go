package integration

import "context"

// fakeSender lets tests script canned responses per commandType without a
// real transport connection.
type fakeSender struct {
	responses map[string][]fakeResponse
	calls     []string
}

type fakeResponse struct {
	value interface{}
	err   error
}

func newFakeSender() *fakeSender {
	return &fakeSender{responses: make(map[string][]fakeResponse)}
}

func (f *fakeSender) on(commandType string, value interface{}, err error) *fakeSender {
	f.responses[commandType] = append(f.responses[commandType], fakeResponse{value: value, err: err})
	return f
}

func (f *fakeSender) Send(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error) {
	f.calls = append(f.calls, commandType)
	queue := f.responses[commandType]
	if len(queue) == 0 {
		return nil, context.DeadlineExceeded
	}
	next := queue[0]
	f.responses[commandType] = queue[1:]
	return next.value, next.err
}
