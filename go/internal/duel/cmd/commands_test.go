package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/duelclient/go/internal/models"
)

type fakeClient struct {
	calls []string
	links map[string]string
}

func (f *fakeClient) CreateDuel(ctx context.Context, players []string) error {
	f.calls = append(f.calls, "create "+strings.Join(players, ","))
	return nil
}

func (f *fakeClient) JoinDuel(ctx context.Context, duelID, playerID string) error {
	f.calls = append(f.calls, "join "+duelID+" "+playerID)
	return nil
}

func (f *fakeClient) PlayCard(ctx context.Context, card string, option models.PlayOption) error {
	f.calls = append(f.calls, "play "+card+" "+string(option))
	return nil
}

func (f *fakeClient) EndTurn(ctx context.Context) error {
	f.calls = append(f.calls, "end")
	return nil
}

func (f *fakeClient) Hello(ctx context.Context) string {
	return "Loading...Hello, World!"
}

func (f *fakeClient) JoinLinks(ctx context.Context) (map[string]string, error) {
	return f.links, nil
}

func (f *fakeClient) Stats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"state": "CONNECTED", "dials": 1}, nil
}

func TestRunCommands(t *testing.T) {
	f := &fakeClient{}
	var out bytes.Buffer
	quit := false

	input := strings.Join([]string{
		"create Alice Bob",
		"",
		"join D1 Bob",
		"play 2 inflict",
		"play b1 GAIN",
		"END",
		"hello",
		"stats",
		"quit",
		"end",
	}, "\n")
	runCommands(context.Background(), f, strings.NewReader(input), &out, func() { quit = true })

	assert.True(t, quit)
	assert.Equal(t, []string{
		"create Alice,Bob",
		"join D1 Bob",
		"play 2 INFLICT",
		"play b1 GAIN",
		"end",
	}, f.calls)
	assert.Contains(t, out.String(), "Loading...Hello, World!")
	assert.Contains(t, out.String(), "dials: 1\nstate: CONNECTED\n")
}

func TestExecute_Usage(t *testing.T) {
	f := &fakeClient{}
	var out bytes.Buffer

	for _, line := range []string{"join D1", "play 1", "play 1 double", "create", "dance"} {
		_, err := execute(context.Background(), f, line, &out)
		assert.ErrorIs(t, err, errUsage, line)
	}
	assert.Empty(t, f.calls)
}

func TestExecute_Links(t *testing.T) {
	f := &fakeClient{links: map[string]string{"Alice": "http://localhost:11995/?duelId=D1&playerId=Alice"}}
	var out bytes.Buffer

	_, err := execute(context.Background(), f, "links", &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "join as Alice: http://localhost:11995/?duelId=D1&playerId=Alice")
	assert.Contains(t, out.String(), "██")
}
