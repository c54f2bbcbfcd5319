package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/resultgroups/internal/config"
	"github.com/mmynk/resultgroups/internal/models"
	"github.com/mmynk/resultgroups/internal/storage"
)

type cli struct {
	t      *testing.T
	dbPath string
}

func newCLI(t *testing.T) *cli {
	return &cli{t: t, dbPath: filepath.Join(t.TempDir(), "groupctl.db")}
}

func (c *cli) run(args ...string) ([]byte, error) {
	c.t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--db", c.dbPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.Bytes(), err
}

func (c *cli) decode(v interface{}, args ...string) {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err)
	require.NoError(c.t, json.Unmarshal(out, v))
}

func (c *cli) addMember(start, end string) models.MemberResult {
	c.t.Helper()
	var m models.MemberResult
	c.decode(&m, "member", "add", "--start", start, "--end", end)
	require.NotEmpty(c.t, m.ID)
	return m
}

func TestMemberCommands(t *testing.T) {
	c := newCLI(t)

	added := c.addMember("5", "10")
	assert.Equal(t, int64(5), added.StartTime)
	assert.Equal(t, int64(10), added.EndTime)

	var got models.MemberResult
	c.decode(&got, "member", "get", added.ID)
	assert.Equal(t, added, got)

	_, err := c.run("member", "get", "missing")
	assert.Error(t, err)

	_, err = c.run("member", "add", "--start", "20", "--end", "10")
	assert.Error(t, err)
}

func TestGroupCommands(t *testing.T) {
	c := newCLI(t)

	m1, m2 := c.addMember("0", "10"), c.addMember("0", "15")
	var first models.GroupRecord
	c.decode(&first, "group", "save", "--owner", "1", "--dim", "D1=K1", "--members", m2.ID+","+m1.ID)
	require.NotNil(t, first.EndTime)
	assert.Equal(t, int64(15), *first.EndTime)
	assert.Equal(t, "{D1=K1}", first.Signature)
	assert.Equal(t, []string{m2.ID, m1.ID}, first.MemberIDs())

	m3, m4 := c.addMember("0", "20"), c.addMember("0", "25")
	var second models.GroupRecord
	c.decode(&second, "group", "save", "--owner", "1", "--dim", "D1=K1", "--members", m4.ID, "--members", m3.ID)
	assert.Greater(t, second.CreatedSequence, first.CreatedSequence)

	var byID models.GroupRecord
	c.decode(&byID, "group", "get", second.ID)
	assert.Equal(t, second.ID, byID.ID)
	assert.Equal(t, []string{m4.ID, m3.ID}, byID.MemberIDs())

	var recent models.GroupRecord
	c.decode(&recent, "group", "recent", "--owner", "1", "--dim", "D1=K1", "--start", "0", "--end", "50")
	assert.Equal(t, second.ID, recent.ID)

	c.decode(&recent, "group", "recent", "--owner", "1", "--signature", "{D1=K1}", "--start", "0", "--end", "15")
	assert.Equal(t, first.ID, recent.ID)

	_, err := c.run("group", "recent", "--owner", "1", "--dim", "D1=K1", "--start", "100", "--end", "200")
	assert.Error(t, err)

	_, err = c.run("group", "recent", "--owner", "1", "--dim", "D1=K1", "--signature", "{D1=K1}", "--end", "50")
	assert.Error(t, err)

	var history []models.GroupRecord
	c.decode(&history, "group", "history", "--owner", "1", "--dim", "D1=K1")
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestGroupSaveRejectsUnknownMember(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("group", "save", "--owner", "1", "--dim", "D1=K1", "--members", "missing")
	assert.Error(t, err)

	_, err = c.run("group", "save", "--owner", "1", "--dim", "novalue")
	assert.Error(t, err)
}

func TestStoreClosedAfterFailedCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "groupctl.db")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown member", []string{"member", "get", "missing"}},
		{"group with unknown member", []string{"group", "save", "--owner", "1", "--members", "missing"}},
		{"empty window", []string{"group", "recent", "--owner", "1", "--start", "0", "--end", "50"}},
		{"successful command", []string{"group", "history", "--owner", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opened storage.Store
			a := &app{openStore: func(cfg *config.Config) (storage.Store, error) {
				s, err := openStore(cfg)
				opened = s
				return s, err
			}}
			cmd := newRootCommand(a)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, tt.args...))
			_ = cmd.Execute()

			require.NotNil(t, opened)
			assert.Nil(t, a.store)
			_, err := opened.GetMember(context.Background(), "missing")
			assert.ErrorContains(t, err, "database is closed")
		})
	}
}
