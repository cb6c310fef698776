package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fleetledger/backoffice/internal/domain"
)

// AuditRepo appends to and reads from the audit log (registros_auditoria).
type AuditRepo interface {
	// Record appends rec. ID and At are assigned by the database.
	Record(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error)

	// List returns the newest records first, narrowed by f.
	// f.Limit is clamped to [1, domain.MaxPageLimit].
	List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditRecord, error)
}

type pgAuditRepo struct {
	db db
}

// NewAuditRepo constructs an AuditRepo backed by the provided db connection.
// Bind it to the same pgx.Tx as the write it documents.
func NewAuditRepo(db db) AuditRepo {
	return &pgAuditRepo{db: db}
}

const auditColumns = `
	id, usuario_id, accion, entidad, entidad_id, datos_anteriores, datos_nuevos, ip_address, fecha_hora`

func (r *pgAuditRepo) Record(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error) {
	const q = `
		INSERT INTO registros_auditoria (usuario_id, accion, entidad, entidad_id, datos_anteriores, datos_nuevos, ip_address)
		VALUES (@usuario_id, @accion, @entidad, @entidad_id, @datos_anteriores, @datos_nuevos, @ip_address)
		RETURNING` + auditColumns

	args := pgx.NamedArgs{
		"usuario_id":       rec.ActorID,
		"accion":           string(rec.Action),
		"entidad":          rec.Entity,
		"entidad_id":       rec.EntityID,
		"datos_anteriores": jsonDocument(rec.Before),
		"datos_nuevos":     jsonDocument(rec.After),
		"ip_address":       optionalText(rec.SourceAddress),
	}

	result, err := scanAudit(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("repo.AuditRepo.Record: %w", err)
	}
	return result, nil
}

func (r *pgAuditRepo) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditRecord, error) {
	const q = `SELECT` + auditColumns + `
		FROM registros_auditoria
		WHERE (@entidad::text IS NULL OR entidad = @entidad)
		  AND (@accion::text IS NULL OR accion = @accion)
		ORDER BY fecha_hora DESC, id DESC
		LIMIT @limit`

	limit := f.Limit
	if limit < 1 {
		limit = domain.DefaultPageLimit
	}
	limit = min(limit, domain.MaxPageLimit)

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"entidad": optionalText(f.Entity),
		"accion":  optionalText(string(f.Action)),
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("repo.AuditRepo.List: %w", err)
	}
	defer rows.Close()

	records := []domain.AuditRecord{}
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.AuditRepo.List: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.AuditRepo.List: rows: %w", err)
	}
	return records, nil
}

// jsonDocument stores an empty snapshot as SQL NULL.
func jsonDocument(doc []byte) any {
	if len(doc) == 0 {
		return nil
	}
	return string(doc)
}

func scanAudit(s scanner) (domain.AuditRecord, error) {
	var (
		rec    domain.AuditRecord
		action string
		before []byte
		after  []byte
		addr   pgtype.Text
	)
	err := s.Scan(&rec.ID, &rec.ActorID, &action, &rec.Entity, &rec.EntityID, &before, &after, &addr, &rec.At)
	if err != nil {
		return domain.AuditRecord{}, notFound(err)
	}
	rec.Action = domain.AuditAction(action)
	rec.Before = before
	rec.After = after
	rec.SourceAddress = addr.String
	return rec, nil
}
