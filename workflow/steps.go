/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
	"github.com/suparena/familystore/telemetry"
)

// Step operation names. Store calls nest under them as "<step>.<call>".
const (
	stepCreateDatabase  = "CreateDatabaseAsync"
	stepCreateContainer = "CreateContainerAsync"
	stepAddItems        = "AddItemsToContainerAsync"
	stepQueryItems      = "QueryItemsAsync"
	stepReplaceItem     = "ReplaceFamilyItemAsync"
	stepDeleteItem      = "DeleteFamilyItemAsync"
	stepCleanup         = "DeleteDatabaseAndCleanupAsync"
)

const (
	propFamilyMemberID = "FamilyMemberId"
	propPartitionKey   = "PartitionKey"
	propQuery          = "Query"
)

func callName(step, call string) string {
	return step + "." + call
}

func outcomeOf(created bool) Outcome {
	if created {
		return OutcomeCreated
	}
	return OutcomeAlreadyExists
}

func (r *Runner) createDatabase(ctx context.Context) (Outcome, error) {
	outcome := OutcomeFailed
	err := r.trace(ctx, stepCreateDatabase, func(ctx context.Context, _ *telemetry.Operation) error {
		err := r.trace(ctx, callName(stepCreateDatabase, "CreateDatabaseIfNotExistsAsync"), func(ctx context.Context, op *telemetry.Operation) error {
			resp, err := r.client.CreateDatabaseIfNotExists(ctx, r.opts.databaseID)
			if err != nil {
				return fmt.Errorf("create database %s: %w", r.opts.databaseID, err)
			}
			op.AttachDiagnostics(resp.Diagnostics)
			r.database = resp.Database
			outcome = outcomeOf(resp.Created)
			return nil
		})
		if err != nil {
			return err
		}
		r.log(ctx, EventCreateDatabase,
			zap.String("database.id", r.database.ID()),
			zap.Stringer("outcome", outcome))
		return nil
	})
	return outcome, err
}

func (r *Runner) createContainer(ctx context.Context) (Outcome, error) {
	outcome := OutcomeFailed
	err := r.trace(ctx, stepCreateContainer, func(ctx context.Context, _ *telemetry.Operation) error {
		if r.database == nil {
			return errors.NewValidationError("database", "CreateDatabase has not run")
		}
		pkAttr, err := storagemodels.PartitionKeyAttribute(r.opts.partitionKeyPath)
		if err != nil {
			return err
		}
		r.pkAttr = pkAttr

		err = r.trace(ctx, callName(stepCreateContainer, "CreateContainerIfNotExistsAsync"), func(ctx context.Context, op *telemetry.Operation) error {
			props := datastore.ContainerProperties{ID: r.opts.containerID, PartitionKeyPath: r.opts.partitionKeyPath}
			resp, err := r.database.CreateContainerIfNotExists(ctx, props)
			if err != nil {
				return fmt.Errorf("create container %s: %w", r.opts.containerID, err)
			}
			op.AttachDiagnostics(resp.Diagnostics)
			r.container = resp.Container
			outcome = outcomeOf(resp.Created)
			return nil
		})
		if err != nil {
			return err
		}
		r.log(ctx, EventCreateContainer,
			zap.String("container.id", r.container.ID()),
			zap.Stringer("outcome", outcome))
		return nil
	})
	return outcome, err
}

// addItems creates every seed that is not already stored. Each seed is read
// first; only a not-found read leads to a create.
func (r *Runner) addItems(ctx context.Context) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(r.opts.seeds))
	err := r.trace(ctx, stepAddItems, func(ctx context.Context, _ *telemetry.Operation) error {
		if err := r.requireContainer(); err != nil {
			return err
		}
		for _, seed := range r.opts.seeds {
			outcome, err := r.addItem(ctx, seed)
			outcomes = append(outcomes, outcome)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return outcomes, err
}

func (r *Runner) addItem(ctx context.Context, seed storagemodels.Family) (Outcome, error) {
	pk, err := r.partitionKeyOf(seed)
	if err != nil {
		return OutcomeFailed, err
	}

	var existing storagemodels.Family
	readErr := r.trace(ctx, callName(stepAddItems, "ReadItemAsync"), func(ctx context.Context, op *telemetry.Operation) error {
		op.SetProperty(propFamilyMemberID, seed.ID)
		op.SetProperty(propPartitionKey, pk)
		resp, err := r.container.ReadItem(ctx, seed.ID, pk, &existing)
		if err != nil {
			return err
		}
		op.AttachDiagnostics(resp.Diagnostics)
		return nil
	})
	if readErr == nil {
		r.log(ctx, EventItemAlreadyExists, zap.String("item.id", existing.ID))
		return OutcomeAlreadyExists, nil
	}
	if !errors.IsNotFound(readErr) {
		return OutcomeFailed, fmt.Errorf("read item %s: %w", seed.ID, readErr)
	}

	var charge float64
	err = r.trace(ctx, callName(stepAddItems, "CreateItemAsync"), func(ctx context.Context, op *telemetry.Operation) error {
		op.SetProperty(propFamilyMemberID, seed.ID)
		op.SetProperty(propPartitionKey, pk)
		resp, err := r.container.CreateItem(ctx, pk, seed)
		if err != nil {
			return fmt.Errorf("create item %s: %w", seed.ID, err)
		}
		op.AttachDiagnostics(resp.Diagnostics)
		charge = resp.RequestCharge()
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}
	r.log(ctx, EventItemCreated, zap.String("item.id", seed.ID), zap.Float64("request_charge", charge))
	return OutcomeCreated, nil
}

// queryItems drains every page of the partition of the first seed.
func (r *Runner) queryItems(ctx context.Context) ([]storagemodels.Family, error) {
	var families []storagemodels.Family
	err := r.trace(ctx, stepQueryItems, func(ctx context.Context, _ *telemetry.Operation) error {
		if err := r.requireContainer(); err != nil {
			return err
		}
		target := r.opts.seeds[0]
		pk, err := r.partitionKeyOf(target)
		if err != nil {
			return err
		}
		query := storagemodels.NewEqualityQuery(r.pkAttr, pk).WithPageSize(r.opts.queryPageSize)
		r.log(ctx, EventRunningQuery, zap.String("query", query.Text()))

		var pager datastore.Pager
		_ = r.trace(ctx, callName(stepQueryItems, "GetItemQueryIterator"), func(_ context.Context, op *telemetry.Operation) error {
			op.SetProperty(propQuery, query.Text())
			pager = r.container.Query(query)
			return nil
		})

		for pager.HasMorePages() {
			var batch []storagemodels.Family
			err := r.trace(ctx, callName(stepQueryItems, "ReadNextAsync"), func(ctx context.Context, op *telemetry.Operation) error {
				page, err := pager.NextPage(ctx)
				if err != nil {
					return fmt.Errorf("query %q: %w", query.Text(), err)
				}
				op.AttachDiagnostics(page.Diagnostics)
				batch, err = datastore.DecodePage[storagemodels.Family](page)
				return err
			})
			if err != nil {
				return err
			}
			for _, family := range batch {
				families = append(families, family)
				r.log(ctx, EventReadFamily, zap.Stringer("family", family), zap.Any("body", family))
			}
		}
		return nil
	})
	return families, err
}

// replaceFamilyItem registers the last seed and moves its first child to
// grade 6, replacing the whole stored document.
func (r *Runner) replaceFamilyItem(ctx context.Context) (storagemodels.Family, error) {
	var family storagemodels.Family
	err := r.trace(ctx, stepReplaceItem, func(ctx context.Context, _ *telemetry.Operation) error {
		if err := r.requireContainer(); err != nil {
			return err
		}
		target := r.opts.seeds[len(r.opts.seeds)-1]
		pk, err := r.partitionKeyOf(target)
		if err != nil {
			return err
		}

		err = r.trace(ctx, callName(stepReplaceItem, "ReadItemAsync"), func(ctx context.Context, op *telemetry.Operation) error {
			op.SetProperty(propFamilyMemberID, target.ID)
			op.SetProperty(propPartitionKey, pk)
			resp, err := r.container.ReadItem(ctx, target.ID, pk, &family)
			if err != nil {
				return fmt.Errorf("read item %s: %w", target.ID, err)
			}
			op.AttachDiagnostics(resp.Diagnostics)
			return nil
		})
		if err != nil {
			return err
		}

		family.IsRegistered = true
		if len(family.Children) > 0 {
			family.Children[0].Grade = 6
		}

		err = r.trace(ctx, callName(stepReplaceItem, "ReplaceItemAsync"), func(ctx context.Context, op *telemetry.Operation) error {
			op.SetProperty(propFamilyMemberID, family.ID)
			op.SetProperty(propPartitionKey, pk)
			resp, err := r.container.ReplaceItem(ctx, family.ID, pk, family)
			if err != nil {
				return fmt.Errorf("replace item %s: %w", family.ID, err)
			}
			op.AttachDiagnostics(resp.Diagnostics)
			return nil
		})
		if err != nil {
			return err
		}

		r.log(ctx, EventUpdateFamily,
			zap.String("partition_key", pk),
			zap.String("item.id", family.ID),
			zap.Any("body", family))
		return nil
	})
	return family, err
}

func (r *Runner) deleteFamilyItem(ctx context.Context) error {
	return r.trace(ctx, stepDeleteItem, func(ctx context.Context, _ *telemetry.Operation) error {
		if err := r.requireContainer(); err != nil {
			return err
		}
		target := r.opts.seeds[len(r.opts.seeds)-1]
		pk, err := r.partitionKeyOf(target)
		if err != nil {
			return err
		}

		err = r.trace(ctx, callName(stepDeleteItem, "DeleteItemAsync"), func(ctx context.Context, op *telemetry.Operation) error {
			op.SetProperty(propFamilyMemberID, target.ID)
			op.SetProperty(propPartitionKey, pk)
			resp, err := r.container.DeleteItem(ctx, target.ID, pk)
			if err != nil {
				return fmt.Errorf("delete item %s: %w", target.ID, err)
			}
			op.AttachDiagnostics(resp.Diagnostics)
			return nil
		})
		if err != nil {
			return err
		}

		r.log(ctx, EventDeleteFamily, zap.String("partition_key", pk), zap.String("item.id", target.ID))
		return nil
	})
}

// deleteContainerAndCleanup deletes the container with everything in it.
// The database itself is never deleted; it reports whether the database has
// no containers left, in which case nothing of it remains in the store.
func (r *Runner) deleteContainerAndCleanup(ctx context.Context) (bool, error) {
	var empty bool
	err := r.trace(ctx, stepCleanup, func(ctx context.Context, _ *telemetry.Operation) error {
		if err := r.requireContainer(); err != nil {
			return err
		}

		err := r.trace(ctx, callName(stepCleanup, "DeleteContainerAsync"), func(ctx context.Context, op *telemetry.Operation) error {
			resp, err := r.container.Delete(ctx)
			if err != nil {
				return fmt.Errorf("delete container %s: %w", r.container.ID(), err)
			}
			op.AttachDiagnostics(resp.Diagnostics)
			return nil
		})
		if err != nil {
			return err
		}
		r.log(ctx, EventDeleteContainer, zap.String("container.id", r.container.ID()))

		var remaining []string
		err = r.trace(ctx, callName(stepCleanup, "GetContainerQueryIterator"), func(ctx context.Context, op *telemetry.Operation) error {
			ids, diag, err := r.database.ContainerIDs(ctx)
			if err != nil {
				if errors.IsNotFound(err) {
					op.AttachDiagnostics(diag)
					return nil
				}
				return fmt.Errorf("list containers of %s: %w", r.database.ID(), err)
			}
			op.AttachDiagnostics(diag)
			remaining = ids
			return nil
		})
		if err != nil {
			return err
		}

		if len(remaining) == 0 {
			empty = true
			r.log(ctx, EventDeleteDatabase, zap.String("database.id", r.database.ID()))
		}
		return nil
	})
	return empty, err
}

func (r *Runner) requireContainer() error {
	if r.container == nil || r.database == nil {
		return errors.NewValidationError("container", "CreateContainer has not run")
	}
	if len(r.opts.seeds) == 0 {
		return errors.NewValidationError("seeds", "at least one seed record is required")
	}
	return nil
}

// partitionKeyOf reads the partition key attribute from the record's stored
// form, so any top-level string attribute can serve as partition key.
func (r *Runner) partitionKeyOf(f storagemodels.Family) (string, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", f, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("decode %s: %w", f, err)
	}
	pk, ok := doc[r.pkAttr].(string)
	if !ok || pk == "" {
		return "", errors.NewValidationError(r.pkAttr, fmt.Sprintf("record %s has no string partition key", f))
	}
	return pk, nil
}
