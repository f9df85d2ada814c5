package utils

import (
	"fmt"

	"github.com/Ruisth/Library/internal/models"
)

func ExportData(logs []models.AuditLog) error {
	for _, entry := range logs {
		//change with actual calls
		fmt.Println(entry.Timestamp, entry.Entity, entry.Action)
	}
	return nil
}
