package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-go-golems/chatpath/pkg/layout"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testReducer() *conversation.Reducer {
	n := 0
	return conversation.NewReducer(
		conversation.WithClock(func() time.Time { return testTime }),
		conversation.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
	)
}

// branchedTree is a root with one child carved out of the welcome message.
func branchedTree(t *testing.T) conversation.Tree {
	r := testReducer()
	s, err := r.Reduce(conversation.State{}, conversation.InitializeTree{})
	require.NoError(t, err)
	root, ok := s.Tree.Root()
	require.True(t, ok)
	msg := root.Messages[0]
	s, err = r.ReduceAll(s,
		conversation.CreateBranch{
			Selection: conversation.TextSelection{
				Text:        "Welcome",
				StartOffset: 2,
				EndOffset:   9,
				MessageID:   msg.ID,
				NodeID:      root.ID,
			},
			NewBranchID:  "child-1",
			ParentNodeID: root.ID,
			Position:     layout.Point{X: 600, Y: 0},
		},
		conversation.AddMessage{NodeID: "child-1", Role: conversation.RoleUser, Content: "Tell me about database indexes"},
	)
	require.NoError(t, err)
	return s.Tree
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tree := branchedTree(t)

	data, err := Encode(tree)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	if diff := cmp.Diff(tree, decoded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeRootParentIsNull(t *testing.T) {
	data, err := Encode(branchedTree(t))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parentId": null`)
	assert.Contains(t, string(data), `"createdAt": "2024-05-01T12:00:00Z"`)
}

func TestDecodeFailures(t *testing.T) {
	valid, err := Encode(branchedTree(t))
	require.NoError(t, err)

	tests := []struct {
		name string
		data string
	}{
		{"empty", "   "},
		{"not json", "{nodes: "},
		{"wrong type", `{"nodes": "x", "edges": [], "rootNodeId": "a"}`},
		{"missing root id", `{"nodes": [], "edges": []}`},
		{"bad role", strings.Replace(string(valid), `"role": "user"`, `"role": "system"`, 1)},
		{"bad date", strings.Replace(string(valid), `"2024-05-01T12:00:00Z"`, `"yesterday"`, 1)},
		{"root mismatch", strings.Replace(string(valid), `"rootNodeId": "id-001"`, `"rootNodeId": "child-1"`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPersistenceFailure), "got %v", err)
		})
	}
}

func TestDecodeEmptyTree(t *testing.T) {
	tree, err := Decode([]byte(`{"nodes": [], "edges": [], "rootNodeId": ""}`))
	require.NoError(t, err)
	assert.True(t, tree.IsEmpty())
}

func TestDecodeAcceptsUnknownFields(t *testing.T) {
	data, err := Encode(branchedTree(t))
	require.NoError(t, err)
	patched := strings.Replace(string(data), `"rootNodeId"`, `"viewport": {"zoom": 1.5}, "rootNodeId"`, 1)

	tree, err := Decode([]byte(patched))
	require.NoError(t, err)
	assert.Len(t, tree.Nodes, 2)
}

func TestDecodePrunesOrphans(t *testing.T) {
	tree := branchedTree(t)
	orphan := tree.Nodes[1]
	orphan.ID = "orphan"
	orphan.ParentID = "gone"
	orphan.IsActive = false
	tree.Nodes = append(tree.Nodes, orphan)
	tree.Edges = append(tree.Edges, conversation.Edge{
		ID:     conversation.EdgeIDFor("gone", "orphan"),
		Source: "gone",
		Target: "orphan",
	})

	data, err := Encode(tree)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Len(t, decoded.Nodes, 2)
	assert.Len(t, decoded.Edges, 1)
	_, ok := decoded.Node("orphan")
	assert.False(t, ok)
}

func TestRepair(t *testing.T) {
	data, err := Encode(branchedTree(t))
	require.NoError(t, err)

	damaged := strings.TrimSuffix(strings.TrimSpace(string(data)), "}") + ",}"
	_, err = Decode([]byte(damaged))
	require.Error(t, err)

	repaired, err := Repair([]byte(damaged))
	require.NoError(t, err)
	tree, err := Decode(repaired)
	require.NoError(t, err)
	assert.Len(t, tree.Nodes, 2)

	same, err := Repair(data)
	require.NoError(t, err)
	assert.Equal(t, data, same)
}

func TestEncodeYAML(t *testing.T) {
	out, err := EncodeYAML(branchedTree(t))
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, "nodes:\n"), s)
	assert.Contains(t, s, "rootNodeId: id-001")

	var back map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &back))
	nodes, ok := back["nodes"].([]interface{})
	require.True(t, ok)
	assert.Len(t, nodes, 2)
}

func TestSchema(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, draft07)
	assert.Contains(t, s, `"rootNodeId"`)
	assert.Contains(t, s, `"assistant"`)
	assert.NotContains(t, s, `"$ref"`)
}

func testBackends(t *testing.T) map[string]KV {
	dir := t.TempDir()
	fileKV, err := NewFileKV(filepath.Join(dir, "files"))
	require.NoError(t, err)
	dsn, err := SQLiteDSNForFile(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	sqliteKV, err := NewSQLiteKV(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqliteKV.Close()
	})
	return map[string]KV{
		"memory": NewMemoryKV(),
		"file":   fileKV,
		"sqlite": sqliteKV,
	}
}

func TestKVBackends(t *testing.T) {
	ctx := context.Background()
	for name, kv := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, "missing")
			assert.True(t, errors.Is(err, ErrSnapshotNotFound), "got %v", err)

			require.NoError(t, kv.Set(ctx, DefaultKey, []byte(`{"a":1}`)))
			require.NoError(t, kv.Set(ctx, DefaultKey, []byte(`{"a":2}`)))
			v, err := kv.Get(ctx, DefaultKey)
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(v))

			require.NoError(t, kv.Delete(ctx, DefaultKey))
			require.NoError(t, kv.Delete(ctx, DefaultKey))
			_, err = kv.Get(ctx, DefaultKey)
			assert.True(t, errors.Is(err, ErrSnapshotNotFound))
		})
	}
}

func TestFileKVSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), "../escape", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".._escape.json", entries[0].Name())
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	archiveDir := t.TempDir()
	archiver, err := NewArchiver(archiveDir, "", WithArchiveClock(func() time.Time { return testTime }))
	require.NoError(t, err)
	repo := NewRepository(NewMemoryKV(), WithKey("trees"), WithArchiver(archiver))
	assert.Equal(t, "trees", repo.Key())

	_, err = repo.Load(ctx)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))

	tree := branchedTree(t)
	require.NoError(t, repo.Save(ctx, tree))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(tree, loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("loaded tree mismatch (-want +got):\n%s", diff)
	}

	archived := filepath.Join(archiveDir, "2024", "05", "01", "120000-id-001.json")
	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	_, err = Decode(data)
	require.NoError(t, err)

	require.NoError(t, repo.Clear(ctx))
	_, err = repo.Load(ctx)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
	require.NoError(t, repo.Close())
}

func TestArchiverRejectsEscapingPaths(t *testing.T) {
	a, err := NewArchiver(t.TempDir(), "../{{.TreeID}}.json")
	require.NoError(t, err)
	_, err = a.Path(branchedTree(t))
	assert.Error(t, err)

	_, err = NewArchiver(t.TempDir(), "{{.Broken")
	assert.Error(t, err)
}
