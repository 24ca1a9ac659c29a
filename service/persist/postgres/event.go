package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/rentfi/go-rentfi/service/persist"
)

// EventRepository persists emitted state-change events over the pgx pool
type EventRepository struct {
	Pool *pgxpool.Pool
}

// Add stores an event and returns it with its assigned ID and creation time
func (r *EventRepository) Add(pCtx context.Context, pEvent persist.Event) (persist.Event, error) {
	pEvent.ID = persist.GenerateID()
	row := r.Pool.QueryRow(pCtx, `INSERT INTO events (ID,ACTOR_ADDRESS,ACTION,RESOURCE_TYPE,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,DATA) VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING CREATED_AT;`,
		pEvent.ID, pEvent.ActorAddress, pEvent.Action, int(pEvent.ResourceType), pEvent.ContractAddress, pEvent.TokenID, int(pEvent.Chain), pEvent.Data)
	if err := row.Scan(&pEvent.CreationTime); err != nil {
		return persist.Event{}, err
	}
	return pEvent, nil
}

// GetByAsset retrieves the most recent events for an asset
func (r *EventRepository) GetByAsset(pCtx context.Context, pContractAddress persist.EthereumAddress, pTokenID persist.TokenID, pChain persist.Chain, limit int64) ([]persist.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.Pool.Query(pCtx, `SELECT ID,CREATED_AT,ACTOR_ADDRESS,ACTION,RESOURCE_TYPE,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,DATA FROM events WHERE CONTRACT_ADDRESS = $1 AND TOKEN_ID = $2 AND CHAIN = $3 ORDER BY CREATED_AT DESC LIMIT $4;`,
		pContractAddress, pTokenID, int(pChain), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]persist.Event, error) {
	events := make([]persist.Event, 0, 10)
	for rows.Next() {
		var event persist.Event
		var resourceType, chain int
		if err := rows.Scan(&event.ID, &event.CreationTime, &event.ActorAddress, &event.Action, &resourceType, &event.ContractAddress, &event.TokenID, &chain, &event.Data); err != nil {
			return nil, err
		}
		event.ResourceType = persist.ResourceType(resourceType)
		event.Chain = persist.Chain(chain)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
