package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// Nombres de los dos documentos persistidos. El FileStore los usa como nombre
// de fichero y el SQLiteStore como clave de la tabla documents.
const (
	HistoryDocument     = "accuracy_history.json"
	PerformanceDocument = "model_performance.json"
)

func encodeDocument(name string, v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, &domain.PersistenceError{Op: "encode", Target: name, Err: err}
	}
	return append(data, '\n'), nil
}

// decodeHistory parsea y valida el documento History.
// Cualquier fallo es un *domain.CorruptHistoryError: el documento existe pero
// no se puede confiar en él.
func decodeHistory(name string, data []byte) (domain.History, error) {
	var h domain.History
	if err := strictUnmarshal(data, &h); err != nil {
		return domain.History{}, &domain.CorruptHistoryError{Document: name, Reason: "decode", Err: err}
	}
	if h.Predictions == nil || h.Validations == nil {
		return domain.History{}, &domain.CorruptHistoryError{Document: name, Reason: "missing predictions or validations"}
	}
	if err := domain.ValidateSchema(h); err != nil {
		return domain.History{}, &domain.CorruptHistoryError{Document: name, Reason: "schema", Err: err}
	}
	if err := h.Check(); err != nil {
		return domain.History{}, &domain.CorruptHistoryError{Document: name, Reason: "consistency", Err: err}
	}
	return h, nil
}

// decodePerformance parsea y valida el documento PerformanceByCondition.
func decodePerformance(name string, data []byte) (domain.PerformanceByCondition, error) {
	var perf domain.PerformanceByCondition
	if err := strictUnmarshal(data, &perf); err != nil {
		return nil, &domain.CorruptHistoryError{Document: name, Reason: "decode", Err: err}
	}
	if perf == nil {
		return nil, &domain.CorruptHistoryError{Document: name, Reason: "document is null"}
	}
	for cond, models := range perf {
		if cond == "" {
			return nil, &domain.CorruptHistoryError{Document: name, Reason: "empty condition label"}
		}
		for model, stats := range models {
			if err := domain.ValidateSchema(stats); err != nil {
				return nil, &domain.CorruptHistoryError{
					Document: name,
					Reason:   fmt.Sprintf("schema %s/%s", cond, model),
					Err:      err,
				}
			}
		}
	}
	return perf, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after document")
	}
	return nil
}
