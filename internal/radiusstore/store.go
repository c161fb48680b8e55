package radiusstore

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "isp-netops.com/engine/internal/models"
    "isp-netops.com/engine/internal/vendors"
    "isp-netops.com/engine/pkg/database"
)

var (
    ErrPlanNotFound  = errors.New("plan not found")
    ErrPlanNoSpeeds  = errors.New("plan has no download/upload speeds configured")
)

// Store is the single authoritative way to grant or revoke network access
// through RADIUS. All writes are keyed on (username, attribute) and are
// safe to repeat; the attribute set for one user is written in one
// transaction.
type Store struct {
    db *database.DB
}

func New(db *database.DB) *Store {
    return &Store{db: db}
}

type planSpeeds struct {
    downMbps int
    upMbps   int
    burst    *vendors.BurstSpec
}

func (s *Store) loadPlanSpeeds(ctx context.Context, planID int) (*planSpeeds, error) {
    var down, up, burstDown, burstUp sql.NullInt64
    err := s.db.QueryRowContext(ctx, `
        SELECT download_mbps, upload_mbps, burst_down_mbps, burst_up_mbps
        FROM plans WHERE id = $1
    `, planID).Scan(&down, &up, &burstDown, &burstUp)

    if err == sql.ErrNoRows {
        return nil, fmt.Errorf("plan %d: %w", planID, ErrPlanNotFound)
    }
    if err != nil {
        return nil, fmt.Errorf("failed to load plan %d: %w", planID, err)
    }
    if !down.Valid || !up.Valid {
        return nil, fmt.Errorf("plan %d: %w", planID, ErrPlanNoSpeeds)
    }

    speeds := &planSpeeds{downMbps: int(down.Int64), upMbps: int(up.Int64)}
    if burstDown.Valid && burstUp.Valid {
        speeds.burst = &vendors.BurstSpec{DownMbps: int(burstDown.Int64), UpMbps: int(burstUp.Int64)}
    }
    return speeds, nil
}

// ProvisionUser upserts the password check entry, the vendor speed reply
// attribute, and the fixed PPP defaults. The defaults use insert-or-do-
// nothing so a re-provision never disturbs operator overrides.
func (s *Store) ProvisionUser(ctx context.Context, username, password string, planID int, vendor string) error {
    speeds, err := s.loadPlanSpeeds(ctx, planID)
    if err != nil {
        return err
    }

    attribute, value := vendors.FormatSpeedAttribute(vendor, speeds.downMbps, speeds.upMbps, speeds.burst)

    return s.db.WithTx(ctx, func(tx *sql.Tx) error {
        if err := upsert(ctx, tx, "radcheck", username, "Cleartext-Password", ":=", password); err != nil {
            return err
        }
        if err := upsert(ctx, tx, "radreply", username, attribute, "=", value); err != nil {
            return err
        }

        defaults := [][2]string{
            {"Framed-Protocol", "PPP"},
            {"Framed-Compression", "Van-Jacobson-TCP-IP"},
            {"Service-Type", "Framed-User"},
        }
        for _, d := range defaults {
            if err := insertIfAbsent(ctx, tx, "radreply", username, d[0], "=", d[1]); err != nil {
                return err
            }
        }
        return nil
    })
}

// UpdateSpeed re-derives the rate attribute for the user's current plan
// and vendor. Stale rate attributes under other names (left over from a
// router vendor change) are deleted rather than orphaned.
func (s *Store) UpdateSpeed(ctx context.Context, username string, planID int, vendor string) error {
    speeds, err := s.loadPlanSpeeds(ctx, planID)
    if err != nil {
        return err
    }

    attribute, value := vendors.FormatSpeedAttribute(vendor, speeds.downMbps, speeds.upMbps, speeds.burst)

    return s.db.WithTx(ctx, func(tx *sql.Tx) error {
        for _, name := range vendors.RateAttributeNames {
            if name == attribute {
                continue
            }
            if _, err := tx.ExecContext(ctx,
                `DELETE FROM radreply WHERE username = $1 AND attribute = $2`,
                username, name); err != nil {
                return fmt.Errorf("failed to remove stale attribute %s for %s: %w", name, username, err)
            }
        }
        return upsert(ctx, tx, "radreply", username, attribute, "=", value)
    })
}

// Suspend deletes the check entry only. Authorization rows stay so
// reactivation is a single insert.
func (s *Store) Suspend(ctx context.Context, username string) error {
    _, err := s.db.ExecContext(ctx,
        `DELETE FROM radcheck WHERE username = $1 AND attribute = 'Cleartext-Password'`, username)
    if err != nil {
        return fmt.Errorf("failed to suspend %s: %w", username, err)
    }
    return nil
}

func (s *Store) Unsuspend(ctx context.Context, username, password string) error {
    return s.db.WithTx(ctx, func(tx *sql.Tx) error {
        return upsert(ctx, tx, "radcheck", username, "Cleartext-Password", ":=", password)
    })
}

// DeprovisionResult is a value, not an error: callers treat deprovision
// as best-effort cleanup at service termination.
type DeprovisionResult struct {
    Success bool   `json:"success"`
    Error   string `json:"error,omitempty"`
}

// Deprovision removes the user from all three stores.
func (s *Store) Deprovision(ctx context.Context, username string) DeprovisionResult {
    err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
        for _, table := range []string{"radcheck", "radreply", "radusergroup"} {
            if _, err := tx.ExecContext(ctx,
                fmt.Sprintf("DELETE FROM %s WHERE username = $1", table), username); err != nil {
                return fmt.Errorf("failed to clear %s for %s: %w", table, username, err)
            }
        }
        return nil
    })
    if err != nil {
        return DeprovisionResult{Success: false, Error: err.Error()}
    }
    return DeprovisionResult{Success: true}
}

// HasCheckEntry reports whether the user can currently authenticate.
func (s *Store) HasCheckEntry(ctx context.Context, username string) (bool, error) {
    var n int
    err := s.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM radcheck WHERE username = $1 AND attribute = 'Cleartext-Password'`,
        username).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ListAttributes returns the authorization rows stored for a user, check
// rows before reply rows. Values come back as stored, including the
// cleartext password; this is operator tooling, not a subscriber surface.
func (s *Store) ListAttributes(ctx context.Context, username string) ([]models.RadiusAttribute, error) {
    rows, err := s.db.QueryContext(ctx, `
        SELECT id, username, attribute, op, value, 'check' AS source FROM radcheck WHERE username = $1
        UNION ALL
        SELECT id, username, attribute, op, value, 'reply' FROM radreply WHERE username = $1
        ORDER BY source, attribute
    `, username)
    if err != nil {
        return nil, fmt.Errorf("failed to list attributes for %s: %w", username, err)
    }
    defer rows.Close()

    var attrs []models.RadiusAttribute
    for rows.Next() {
        var a models.RadiusAttribute
        if err := rows.Scan(&a.ID, &a.Username, &a.Attribute, &a.Op, &a.Value, &a.Source); err != nil {
            return nil, err
        }
        attrs = append(attrs, a)
    }
    return attrs, rows.Err()
}

// ActiveSession returns the open accounting session for a user, feeding
// the Disconnect-Request sender. radacct is written by the RADIUS server;
// we only read it.
func (s *Store) ActiveSession(ctx context.Context, username string) (nasIP, sessionID string, found bool, err error) {
    err = s.db.QueryRowContext(ctx, `
        SELECT nasipaddress, acctsessionid FROM radacct
        WHERE username = $1 AND acctstoptime IS NULL
        ORDER BY acctstarttime DESC LIMIT 1
    `, username).Scan(&nasIP, &sessionID)
    if err == sql.ErrNoRows {
        return "", "", false, nil
    }
    if err != nil {
        return "", "", false, fmt.Errorf("failed to look up session for %s: %w", username, err)
    }
    return nasIP, sessionID, true, nil
}

func upsert(ctx context.Context, tx *sql.Tx, table, username, attribute, op, value string) error {
    query := fmt.Sprintf(`
        INSERT INTO %s (username, attribute, op, value) VALUES ($1, $2, $3, $4)
        ON CONFLICT (username, attribute) DO UPDATE SET op = EXCLUDED.op, value = EXCLUDED.value
    `, table)
    if _, err := tx.ExecContext(ctx, query, username, attribute, op, value); err != nil {
        return fmt.Errorf("failed to upsert %s %s for %s: %w", table, attribute, username, err)
    }
    return nil
}

func insertIfAbsent(ctx context.Context, tx *sql.Tx, table, username, attribute, op, value string) error {
    query := fmt.Sprintf(`
        INSERT INTO %s (username, attribute, op, value) VALUES ($1, $2, $3, $4)
        ON CONFLICT (username, attribute) DO NOTHING
    `, table)
    if _, err := tx.ExecContext(ctx, query, username, attribute, op, value); err != nil {
        return fmt.Errorf("failed to insert %s %s for %s: %w", table, attribute, username, err)
    }
    return nil
}
