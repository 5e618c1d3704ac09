package dto

import (
	"encoding/json"
	"time"
)

type MonthUpsertRequest struct {
	Data json.RawMessage `json:"data"`
}

type MonthResponse struct {
	MonthKey  string          `json:"monthKey"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

type VersionResponse struct {
	Current string  `json:"current"`
	Latest  *string `json:"latest"`
}
