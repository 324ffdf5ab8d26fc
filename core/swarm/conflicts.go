package swarm

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/hotswarm/schema"
)

const markerLen = 7

// parser states
const (
	outside = iota
	inOurs
	inBase
	inTheirs
)

// ParseConflictBlocks extracts every complete conflict region from file content.
// Line numbers are 1-based and point at the opening and closing markers. The merge
// base section of diff3-style conflicts is skipped; unterminated regions are dropped.
func ParseConflictBlocks(content []byte) []schema.ConflictBlock {
	var blocks []schema.ConflictBlock
	var current schema.ConflictBlock
	var ours, theirs []string
	state := outside

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		switch {
		case isMarker(line, '<'):
			current = schema.ConflictBlock{StartLine: lineNo}
			ours, theirs = nil, nil
			state = inOurs
		case state == inOurs && isMarker(line, '|'):
			state = inBase
		case (state == inOurs || state == inBase) && line == strings.Repeat("=", markerLen):
			state = inTheirs
		case state == inTheirs && isMarker(line, '>'):
			current.EndLine = lineNo
			current.Ours = strings.Join(ours, "\n")
			current.Theirs = strings.Join(theirs, "\n")
			blocks = append(blocks, current)
			state = outside
		case state == inOurs:
			ours = append(ours, line)
		case state == inTheirs:
			theirs = append(theirs, line)
		}
	}
	return blocks
}

// isMarker reports whether line is a conflict marker made of ch, optionally followed by a label.
func isMarker(line string, ch byte) bool {
	if len(line) < markerLen {
		return false
	}
	for i := range markerLen {
		if line[i] != ch {
			return false
		}
	}
	return len(line) == markerLen || line[markerLen] == ' '
}

// readConflictFiles parses the conflicted paths in the repository working tree.
// Files that cannot be read are reported with no blocks.
func readConflictFiles(repoPath string, paths []string) []schema.ConflictFile {
	files := make([]schema.ConflictFile, 0, len(paths))
	for _, p := range paths {
		cf := schema.ConflictFile{Path: p}
		if data, err := os.ReadFile(filepath.Join(repoPath, p)); err == nil {
			cf.Blocks = ParseConflictBlocks(data)
		}
		files = append(files, cf)
	}
	return files
}

// describeConflict renders a one-line summary for logs and errors.
func describeConflict(pending *schema.PendingConflicts) string {
	names := make([]string, len(pending.Files))
	for i, f := range pending.Files {
		names[i] = f.Path
	}
	return fmt.Sprintf("worker %d (#%s) conflicts in %s", pending.WorkerID, pending.ItemID, strings.Join(names, ", "))
}
