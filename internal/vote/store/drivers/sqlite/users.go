package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"time"

	"github.com/openballot/votegate/internal/vote/domain"
)

type usersRepo struct {
	q queryer
}

const userColumns = `id, username, password_hash, document_number, biometric_type,
	face_enroll_version, face_enroll_data, credential_id, credential_public_key,
	credential_alg, verified, is_admin, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	var enrollVersion sql.NullInt64
	var enrollData sql.NullString
	if u.FaceEnrollment != nil {
		enrollVersion = sql.NullInt64{Int64: int64(u.FaceEnrollment.Version), Valid: true}
		enrollData = sql.NullString{String: u.FaceEnrollment.Data, Valid: true}
	}

	var credID, credKey, credAlg sql.NullString
	if u.Credential != nil {
		credID = sql.NullString{String: u.Credential.ID, Valid: true}
		credKey = sql.NullString{String: base64.StdEncoding.EncodeToString(u.Credential.PublicKey), Valid: true}
		credAlg = sql.NullString{String: u.Credential.Algorithm, Valid: true}
	}

	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.DocumentNumber, string(u.BiometricType),
		enrollVersion, enrollData, credID, credKey, credAlg,
		u.Verified, u.IsAdmin, now, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) SetVerified(ctx context.Context, userID string, verified bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET verified = ?, updated_at = ? WHERE id = ?`,
		verified, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateFaceEnrollment(ctx context.Context, userID string, enrollment domain.FaceEnrollment) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET biometric_type = ?, face_enroll_version = ?, face_enroll_data = ?, updated_at = ?
		 WHERE id = ?`,
		string(domain.BiometricFace), enrollment.Version, enrollment.Data,
		time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateCredential(ctx context.Context, userID string, cred domain.Credential) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET biometric_type = ?, credential_id = ?, credential_public_key = ?, credential_alg = ?, updated_at = ?
		 WHERE id = ?`,
		string(domain.BiometricFingerprint), cred.ID,
		base64.StdEncoding.EncodeToString(cred.PublicKey), cred.Algorithm,
		time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var biometricType string
	var enrollVersion sql.NullInt64
	var enrollData, credID, credKey, credAlg sql.NullString

	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.DocumentNumber, &biometricType,
		&enrollVersion, &enrollData, &credID, &credKey, &credAlg,
		&u.Verified, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.BiometricType = domain.BiometricType(biometricType)

	if enrollVersion.Valid {
		u.FaceEnrollment = &domain.FaceEnrollment{
			Version: int(enrollVersion.Int64),
			Data:    mapNullString(enrollData),
		}
	}

	if credID.Valid {
		key, err := base64.StdEncoding.DecodeString(mapNullString(credKey))
		if err != nil {
			return domain.User{}, err
		}
		u.Credential = &domain.Credential{
			ID:        credID.String,
			PublicKey: key,
			Algorithm: mapNullString(credAlg),
		}
	}

	return u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
