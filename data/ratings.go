// Package data loads user-item interaction files into dense tensors.
package data

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// LoadRatings reads whitespace separated "user item rating" triples and
// returns a users x items interaction tensor. Indices are zero based and
// the matrix is sized by the largest index seen. Any strictly positive
// rating counts as consumed and becomes a 1; everything else stays 0.
// Blank lines and lines starting with # are skipped, columns past the
// third (timestamps and such) are ignored.
func LoadRatings(r io.Reader) (*tensor.Dense, error) {
	type triple struct {
		user, item int
		rating     float64
	}
	var triples []triple
	users, items := 0, 0

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, errors.Errorf("line %d: want at least 3 fields, got %d", line, len(fields))
		}
		user, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad user", line)
		}
		item, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad item", line)
		}
		rating, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad rating", line)
		}
		if user < 0 || item < 0 {
			return nil, errors.Errorf("line %d: negative index", line)
		}
		triples = append(triples, triple{user, item, rating})
		if user+1 > users {
			users = user + 1
		}
		if item+1 > items {
			items = item + 1
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading ratings")
	}
	if len(triples) == 0 {
		return nil, errors.New("no ratings found")
	}

	backing := make([]float64, users*items)
	for _, t := range triples {
		if t.rating > 0 {
			backing[t.user*items+t.item] = 1
		}
	}
	return tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(users, items), tensor.WithBacking(backing)), nil
}

// LoadRatingsFile opens path and loads it with LoadRatings.
func LoadRatingsFile(path string) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening ratings file")
	}
	defer f.Close()
	return LoadRatings(f)
}
