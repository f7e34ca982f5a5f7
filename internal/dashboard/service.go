package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/elbarril/appalapapa/pkg/enums"
	pkgerrors "github.com/elbarril/appalapapa/pkg/errors"
	"github.com/elbarril/appalapapa/pkg/format"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SessionRow is one rendered session line within a patient group.
type SessionRow struct {
	SessionID int64  `json:"session_id"`
	Date      string `json:"date"`
	Price     string `json:"price"`
	Pending   bool   `json:"pending"`
}

// PatientGroup is one patient with the session rows matching the filter.
// Patients keep their group even when no session matches.
type PatientGroup struct {
	PersonID   int64        `json:"person_id"`
	PersonName string       `json:"person_name"`
	Sessions   []SessionRow `json:"sessions"`
}

// Data is the aggregated landing view.
type Data struct {
	Groups []PatientGroup        `json:"grouped_sessions"`
	Total  int                   `json:"total"`
	Filter enums.DashboardFilter `json:"filter"`
}

// Service composes the read-only dashboard view.
type Service interface {
	GetDashboardData(ctx context.Context, filter enums.DashboardFilter) (*Data, error)
}

type service struct {
	db *gorm.DB
}

// NewService constructs the dashboard aggregator.
func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection is required")
	}
	return &service{db: conn}, nil
}

type joinedRow struct {
	PersonID     int64
	PersonName   string
	SessionID    *int64
	SessionDate  *time.Time
	SessionPrice *decimal.Decimal
	Pending      *bool
}

func (s *service) GetDashboardData(ctx context.Context, filter enums.DashboardFilter) (*Data, error) {
	// The payment filter lives in the join condition, not the WHERE clause,
	// so patients without matching sessions still produce a join-miss row.
	joinCond := "persons.id = therapy_sessions.person_id AND therapy_sessions.deleted_at IS NULL"
	var joinArgs []any
	switch filter {
	case enums.DashboardFilterPending:
		joinCond += " AND therapy_sessions.pending = ?"
		joinArgs = append(joinArgs, true)
	case enums.DashboardFilterPaid:
		joinCond += " AND therapy_sessions.pending = ?"
		joinArgs = append(joinArgs, false)
	default:
		filter = enums.DashboardFilterAll
	}

	query := s.db.WithContext(ctx).
		Table("persons").
		Select(`persons.id AS person_id,
			persons.name AS person_name,
			therapy_sessions.id AS session_id,
			therapy_sessions.session_date,
			therapy_sessions.session_price,
			therapy_sessions.pending`).
		Joins("LEFT JOIN therapy_sessions ON "+joinCond, joinArgs...).
		Where("persons.deleted_at IS NULL").
		Order("persons.name ASC, therapy_sessions.session_date ASC")

	var rows []joinedRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query dashboard rows")
	}

	data := &Data{
		Groups: make([]PatientGroup, 0),
		Filter: filter,
	}
	indexByPerson := make(map[int64]int)

	for _, row := range rows {
		idx, seen := indexByPerson[row.PersonID]
		if !seen {
			idx = len(data.Groups)
			indexByPerson[row.PersonID] = idx
			data.Groups = append(data.Groups, PatientGroup{
				PersonID:   row.PersonID,
				PersonName: row.PersonName,
				Sessions:   make([]SessionRow, 0),
			})
		}

		// Join-miss placeholder rows carry the patient but no session.
		if row.SessionID == nil || row.SessionDate == nil || row.SessionPrice == nil {
			continue
		}

		pending := row.Pending != nil && *row.Pending
		data.Groups[idx].Sessions = append(data.Groups[idx].Sessions, SessionRow{
			SessionID: *row.SessionID,
			Date:      format.Date(*row.SessionDate),
			Price:     format.Price(*row.SessionPrice),
			Pending:   pending,
		})
		data.Total++
	}

	return data, nil
}
