package cmd

import (
	"context"
	"encoding/json"
	"fmt"
)

// localResponder is the built-in stand-in for the model backend. It keeps
// the snapshot as a JSON history of turns, which is enough to exercise
// resumption end to end: a resumed session continues numbering where the
// previous run stopped.
type localResponder struct{}

type turnRecord struct {
	Prompt string `json:"prompt"`
	Reply  string `json:"reply"`
}

type snapshotState struct {
	Turns []turnRecord `json:"turns"`
}

func (localResponder) Respond(ctx context.Context, snapshot []byte, prompt string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	var state snapshotState
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &state); err != nil {
			return "", nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
	}

	reply := fmt.Sprintf("[turn %d] %s", len(state.Turns)+1, prompt)
	state.Turns = append(state.Turns, turnRecord{Prompt: prompt, Reply: reply})

	next, err := json.Marshal(state)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return reply, next, nil
}
