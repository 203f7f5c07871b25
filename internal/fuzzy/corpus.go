package fuzzy

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Aman-CERP/custmatch/internal/store"
)

// Entry is one corpus line: an indexed value and its owning record.
type Entry struct {
	Owner store.RecordID
	Value string
}

// Blob line format: "<ownerID>\t<value>\n". The corpus contract only asks
// for one value per line in append order; carrying the owner on the line
// lets approximate lookup map hits back to records without a second store
// round-trip.

// encodeEntry renders one corpus line. Embedded line breaks in the value
// would split the entry, so they are folded to spaces.
func encodeEntry(e Entry) string {
	value := strings.NewReplacer("\n", " ", "\r", " ").Replace(e.Value)
	return strconv.FormatInt(int64(e.Owner), 10) + "\t" + value + "\n"
}

// decodeEntry parses one corpus line. Returns ok=false for lines that don't
// parse; a torn final line from an interrupted append is skipped rather than
// poisoning the whole corpus.
func decodeEntry(line string) (Entry, bool) {
	idPart, value, found := strings.Cut(line, "\t")
	if !found {
		return Entry{}, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Owner: store.RecordID(id), Value: value}, true
}

// readCorpus loads all entries from a blob file.
func readCorpus(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if e, ok := decodeEntry(scanner.Text()); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return entries, nil
}
