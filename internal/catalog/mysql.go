package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"backend-queueflex/internal/models"
)

// MySQL reads descriptors from the registry's services table.
type MySQL struct {
	db *sql.DB
}

func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

const serviceColumns = `id, name, category, max_capacity, is_active`

func (m *MySQL) GetService(ctx context.Context, serviceID string) (models.ServiceDescriptor, error) {
	row := m.db.QueryRowContext(ctx,
		"SELECT "+serviceColumns+" FROM services WHERE id = ?",
		serviceID,
	)
	svc, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ServiceDescriptor{}, ErrServiceNotFound
	}
	if err != nil {
		return models.ServiceDescriptor{}, fmt.Errorf("catalog/mysql: get service %s: %w: %w", serviceID, ErrUnavailable, err)
	}
	return svc, nil
}

func (m *MySQL) ListServices(ctx context.Context) ([]models.ServiceDescriptor, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT "+serviceColumns+" FROM services ORDER BY created_at ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("catalog/mysql: list services: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	services := []models.ServiceDescriptor{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog/mysql: scan service: %w: %w", ErrUnavailable, err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog/mysql: list services: %w: %w", ErrUnavailable, err)
	}
	return services, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanService(s scanner) (models.ServiceDescriptor, error) {
	var (
		svc      models.ServiceDescriptor
		category sql.NullString
		isActive string
	)
	if err := s.Scan(&svc.ServiceID, &svc.Name, &category, &svc.MaxCapacity, &isActive); err != nil {
		return models.ServiceDescriptor{}, err
	}
	svc.Category = category.String
	svc.IsActive = isActive == "y"
	return svc, nil
}
