package provisioning

import (
    "context"
    "sync"
)

// SweepSummary is the only thing a scheduled sweep surfaces; individual
// item failures are logged, counted, and otherwise swallowed.
type SweepSummary struct {
    Scanned   int `json:"scanned"`
    Succeeded int `json:"succeeded"`
    Failed    int `json:"failed"`
}

// SweepOptions bound how much one sweep bites off.
type SweepOptions struct {
    BatchSize int
    Workers   int
}

func (opts *SweepOptions) normalize() {
    if opts.BatchSize <= 0 {
        opts.BatchSize = 50
    }
    if opts.Workers <= 0 {
        opts.Workers = 10
    }
}

// CheckAndProvisionActiveServices finds active, fully specified services
// not yet on their router and provisions them. One service's failure
// never blocks the rest.
func (o *Orchestrator) CheckAndProvisionActiveServices(ctx context.Context, opts SweepOptions) (*SweepSummary, error) {
    opts.normalize()

    ids, err := o.sweepCandidates(ctx, `
        SELECT cs.id FROM customer_services cs
        JOIN routers r ON cs.router_id = r.id
        WHERE cs.status = 'active'
          AND cs.router_provisioned = false
          AND r.status = 'active'
          AND (
              (cs.connection_type = 'pppoe' AND cs.username IS NOT NULL AND cs.password IS NOT NULL)
              OR (cs.connection_type IN ('static_ip', 'dhcp') AND cs.static_ip IS NOT NULL)
          )
        ORDER BY cs.id
        LIMIT $1
    `, opts.BatchSize)
    if err != nil {
        return nil, err
    }

    return o.runSweep(ctx, ids, opts.Workers, o.ProvisionServiceToRouter), nil
}

// CheckAndDeprovisionInactiveServices finds services that lost their
// standing but are still on a router and removes them.
func (o *Orchestrator) CheckAndDeprovisionInactiveServices(ctx context.Context, opts SweepOptions) (*SweepSummary, error) {
    opts.normalize()

    ids, err := o.sweepCandidates(ctx, `
        SELECT cs.id FROM customer_services cs
        JOIN routers r ON cs.router_id = r.id
        WHERE cs.status IN ('suspended', 'inactive', 'terminated', 'past_due')
          AND cs.router_provisioned = true
        ORDER BY cs.id
        LIMIT $1
    `, opts.BatchSize)
    if err != nil {
        return nil, err
    }

    return o.runSweep(ctx, ids, opts.Workers, o.DeprovisionServiceFromRouter), nil
}

func (o *Orchestrator) sweepCandidates(ctx context.Context, query string, limit int) ([]int, error) {
    rows, err := o.db.QueryContext(ctx, query, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var ids []int
    for rows.Next() {
        var id int
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// runSweep fans the per-service work out over a bounded worker pool and
// stops dispatching once the context is cancelled. In-flight items finish.
func (o *Orchestrator) runSweep(ctx context.Context, ids []int, workers int, fn func(context.Context, int) (*LifecycleOutcome, error)) *SweepSummary {
    summary := &SweepSummary{Scanned: len(ids)}
    if len(ids) == 0 {
        return summary
    }

    var mu sync.Mutex
    var wg sync.WaitGroup
    work := make(chan int)

    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for id := range work {
                outcome, err := fn(ctx, id)
                mu.Lock()
                if err != nil || !outcome.Success {
                    summary.Failed++
                    if err != nil {
                        o.logger.Warn("sweep item failed", "service_id", id, "error", err.Error())
                    }
                } else {
                    summary.Succeeded++
                }
                mu.Unlock()
            }
        }()
    }

dispatch:
    for _, id := range ids {
        select {
        case work <- id:
        case <-ctx.Done():
            break dispatch
        }
    }
    close(work)
    wg.Wait()

    return summary
}
