package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// questionSheet is the sheet name content authors use for spreadsheet banks.
const questionSheet = "Questions"

// loadQuestionWorkbook imports a question bank authored as a spreadsheet.
// Expected columns, first row is the header:
//
//	id | concept | tier | text | options | answer | difficulty | explanation | misconceptions
//
// options is pipe-separated ("7|5|12|1"); misconceptions is a semicolon list
// of key=pattern pairs ("A=vec_add_not_pythag;C=vec_multiply_magnitude").
func (c *Catalog) loadQuestionWorkbook(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(questionSheet)
	if err != nil {
		return fmt.Errorf("reading sheet %q in %s: %w", questionSheet, path, err)
	}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		q, err := questionFromRow(row)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		c.Questions = append(c.Questions, q)
	}
	return nil
}

func questionFromRow(row []string) (Question, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	q := Question{
		ID:          cell(0),
		ConceptID:   cell(1),
		Tier:        Tier(cell(2)),
		Text:        cell(3),
		Answer:      cell(5),
		Explanation: cell(7),
	}
	for _, opt := range strings.Split(cell(4), "|") {
		q.Options = append(q.Options, strings.TrimSpace(opt))
	}

	if raw := cell(6); raw != "" {
		difficulty, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Question{}, fmt.Errorf("difficulty %q: %w", raw, err)
		}
		q.Difficulty = difficulty
	}

	if raw := cell(8); raw != "" {
		q.Misconceptions = make(map[string]string)
		for _, pair := range strings.Split(raw, ";") {
			key, pattern, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				return Question{}, fmt.Errorf("malformed misconception tag %q", pair)
			}
			q.Misconceptions[key] = pattern
		}
	}
	return q, nil
}
