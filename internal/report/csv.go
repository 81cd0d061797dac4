package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"emailanalyser/internal/model"
)

// Columns is the CSV header, in output order.
var Columns = []string{
	"timestamp",
	"run_id",
	"email_id",
	"message_key",
	"subject",
	"date",
	"from",
	"to",
	"full_name",
	"gender",
	"phone",
	"address",
	"location",
	"job",
	"email_type",
	"active_email_usage_timeline",
	"languages",
	"sentiment",
	"topics",
}

var ErrMissingHeader = errors.New("csv has no header row")

// WriteCSV writes a header row and one row per result. Nested values are
// JSON encoded cells.
func WriteCSV(w io.Writer, results []*model.AnalysisResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range results {
		row, err := toRow(r)
		if err != nil {
			return fmt.Errorf("encode row %s: %w", r.MessageKey, err)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toRow(r *model.AnalysisResult) ([]string, error) {
	var nested [5]string
	for i, v := range []any{r.Job, r.Activity, r.Languages, r.Sentiment, r.Topics} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		nested[i] = string(b)
	}
	return []string{
		r.Timestamp.Format(time.RFC3339Nano),
		r.RunID,
		r.EmailID,
		r.MessageKey,
		r.Subject,
		r.Date,
		r.From,
		r.To,
		r.FullName,
		r.Gender,
		deref(r.Phone),
		deref(r.Address),
		deref(r.Location),
		nested[0],
		r.EmailType,
		nested[1],
		nested[2],
		nested[3],
		nested[4],
	}, nil
}

// ReadCSV reads rows written by WriteCSV. Columns are matched by header
// name; unknown columns are ignored.
func ReadCSV(r io.Reader) ([]*model.AnalysisResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	var out []*model.AnalysisResult
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		res, err := fromRow(rec, index)
		if err != nil {
			return nil, fmt.Errorf("decode csv line %d: %w", line, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func fromRow(rec []string, index map[string]int) (*model.AnalysisResult, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	res := &model.AnalysisResult{
		RunID:      get("run_id"),
		EmailID:    get("email_id"),
		MessageKey: get("message_key"),
		Subject:    get("subject"),
		Date:       get("date"),
		From:       get("from"),
		To:         get("to"),
		FullName:   get("full_name"),
		Gender:     get("gender"),
		Phone:      ref(get("phone")),
		Address:    ref(get("address")),
		Location:   ref(get("location")),
		EmailType:  get("email_type"),
	}
	if ts := get("timestamp"); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}
		res.Timestamp = t
	}

	cells := []struct {
		col string
		dst any
	}{
		{"job", &res.Job},
		{"active_email_usage_timeline", &res.Activity},
		{"languages", &res.Languages},
		{"sentiment", &res.Sentiment},
		{"topics", &res.Topics},
	}
	for _, c := range cells {
		v := get(c.col)
		if v == "" {
			continue
		}
		if err := json.Unmarshal([]byte(v), c.dst); err != nil {
			return nil, fmt.Errorf("%s: %w", c.col, err)
		}
	}
	return res, nil
}

// SaveCSV writes results to path, creating parent directories. The file is
// replaced atomically.
func SaveCSV(path string, results []*model.AnalysisResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".email_analysis-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, results); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadCSV reads path. A missing file yields os.ErrNotExist.
func LoadCSV(path string) ([]*model.AnalysisResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
