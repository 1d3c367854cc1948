package storage

import (
	"encoding/json"
	"errors"

	"anima/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeSnapshot(s model.GraphSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (model.GraphSnapshot, error) {
	var snapshot model.GraphSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.GraphSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.GraphSnapshot{}, err
	}
	return snapshot, nil
}

func EncodeTickStats(stats []model.TickStats) ([]byte, error) {
	return json.Marshal(stats)
}

func DecodeTickStats(data []byte) ([]model.TickStats, error) {
	var stats []model.TickStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func checkVersion(record model.VersionedRecord) error {
	if record.SchemaVersion > CurrentSchemaVersion || record.CodecVersion > CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
