package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// seedEmployee is one entry of the SEED_EMPLOYEES_FILE JSON array.
type seedEmployee struct {
	ID         string           `json:"id"`
	UserID     *string          `json:"user_id"`
	FullName   string           `json:"full_name"`
	Email      string           `json:"email"`
	BaseSalary *decimal.Decimal `json:"base_salary"`
}

// seedEmployees upserts employee profiles from a JSON file. The directory is
// owned elsewhere; this only exists for local runs and demos.
func seedEmployees(ctx context.Context, repo employee.EmployeeRepository, path string, logger *slog.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var entries []seedEmployee
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	for _, e := range entries {
		if e.ID == "" || e.FullName == "" {
			return fmt.Errorf("seed entry %q: id and full_name are required", e.Email)
		}
		if _, err := repo.Save(ctx, employee.Employee{
			ID:         e.ID,
			UserID:     e.UserID,
			FullName:   e.FullName,
			Email:      e.Email,
			BaseSalary: e.BaseSalary,
		}); err != nil {
			return fmt.Errorf("failed to seed employee %s: %w", e.ID, err)
		}
	}

	logger.Info("employees seeded", "count", len(entries), "file", path)
	return nil
}
