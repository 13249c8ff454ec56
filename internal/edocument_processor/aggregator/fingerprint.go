package aggregator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/record"
)

// content is the part of a record a report is built from. Exchange bookkeeping
// (documents, EDI state, locks, payment links) is left out so that it never makes
// a record look changed.
type content struct {
	ID         int64             `json:"id"`
	Type       record.Type       `json:"type"`
	State      record.State      `json:"state"`
	Name       string            `json:"name"`
	UUID       string            `json:"uuid"`
	Company    record.Party      `json:"company"`
	Partner    record.Party      `json:"partner"`
	Currency   string            `json:"currency"`
	IssueDate  time.Time         `json:"issue_date"`
	DueDate    time.Time         `json:"due_date"`
	Lines      []record.Line     `json:"lines"`
	Origin     *record.Origin    `json:"origin"`
	Payments   []record.Payment  `json:"payments"`
	Extensions record.Extensions `json:"extensions"`
}

// Fingerprint hashes the reportable content of rec.
func Fingerprint(rec *record.SourceRecord) (string, error) {
	raw, err := json.Marshal(content{
		ID:         rec.ID,
		Type:       rec.Type,
		State:      rec.State,
		Name:       rec.Name,
		UUID:       rec.UUID,
		Company:    rec.Company,
		Partner:    rec.Partner,
		Currency:   rec.Currency,
		IssueDate:  rec.IssueDate.UTC(),
		DueDate:    rec.DueDate.UTC(),
		Lines:      rec.Lines,
		Origin:     rec.Origin,
		Payments:   rec.Payments,
		Extensions: rec.Extensions,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func fingerprints(recs []*record.SourceRecord) (map[int64]string, error) {
	out := make(map[int64]string, len(recs))
	for _, rec := range recs {
		fp, err := Fingerprint(rec)
		if err != nil {
			return nil, err
		}
		out[rec.ID] = fp
	}
	return out, nil
}

// sameContent reports whether f reports exactly the records and versions in fps.
func sameContent(f *flow.Flow, fps map[int64]string) bool {
	if len(f.Fingerprints) != len(fps) {
		return false
	}
	for id, fp := range fps {
		if f.Fingerprints[id] != fp {
			return false
		}
	}
	return true
}

func overlaps(f *flow.Flow, fps map[int64]string) bool {
	for id := range fps {
		if _, ok := f.Fingerprints[id]; ok {
			return true
		}
	}
	return false
}
