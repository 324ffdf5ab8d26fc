package swarm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConflictBlocks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []schema.ConflictBlock
	}{
		{
			name:    "no markers",
			content: "a\nb\n",
			want:    nil,
		},
		{
			name: "single block",
			content: "keep\n<<<<<<< HEAD\nours 1\nours 2\n=======\ntheirs\n>>>>>>> swarm/item-2\ntail\n",
			want: []schema.ConflictBlock{
				{StartLine: 2, EndLine: 7, Ours: "ours 1\nours 2", Theirs: "theirs"},
			},
		},
		{
			name:    "two blocks with crlf",
			content: "<<<<<<< HEAD\r\na\r\n=======\r\nb\r\n>>>>>>> x\r\nmid\r\n<<<<<<<\r\n=======\r\nc\r\n>>>>>>>\r\n",
			want: []schema.ConflictBlock{
				{StartLine: 1, EndLine: 5, Ours: "a", Theirs: "b"},
				{StartLine: 7, EndLine: 10, Ours: "", Theirs: "c"},
			},
		},
		{
			name:    "diff3 base section is skipped",
			content: "<<<<<<< ours\nnew\n||||||| base\nold\n=======\nother\n>>>>>>> theirs\n",
			want: []schema.ConflictBlock{
				{StartLine: 1, EndLine: 7, Ours: "new", Theirs: "other"},
			},
		},
		{
			name:    "unterminated block is dropped",
			content: "<<<<<<< HEAD\na\n=======\nb\n",
			want:    nil,
		},
		{
			name:    "longer marker runs are content",
			content: "<<<<<<< HEAD\n<<<<<<<<< not a marker\n=======\n>>>>>>>>\n>>>>>>> end\n",
			want: []schema.ConflictBlock{
				{StartLine: 1, EndLine: 5, Ours: "<<<<<<<<< not a marker", Theirs: ">>>>>>>>"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseConflictBlocks([]byte(tt.content)))
		})
	}
}

func TestReadConflictFiles(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "a.txt"), []byte(conflictedApp), 0o644))

	files := readConflictFiles(repo, []string{"a.txt", "gone.txt"})
	require.Len(t, files, 2)
	assert.Len(t, files[0].Blocks, 1)
	assert.Equal(t, "gone.txt", files[1].Path)
	assert.Empty(t, files[1].Blocks)

	summary := describeConflict(&schema.PendingConflicts{WorkerID: 3, ItemID: "42", Files: files})
	assert.Equal(t, "worker 3 (#42) conflicts in a.txt, gone.txt", summary)
}
