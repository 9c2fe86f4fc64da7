// Copyright 2025 Open Resource Broker Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dynamo implements repository.Repository against a DynamoDB
// table keyed by a single partition key "id". Filters that can't be
// pushed server-side fall back to scan-then-filter, and pagination uses
// the table's own continuation token (LastEvaluatedKey), the shape
// spec.md §4.6 calls for. Grounded on the teacher's
// connectors/registry/postgres_storage.go list/pagination adapter,
// translated from SQL LIMIT/OFFSET to Dynamo's
// ExclusiveStartKey/LastEvaluatedKey.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/awslabs/open-resource-broker/internal/repository"
)

// ddbClient is the slice of *dynamodb.Client our Store calls, narrowed
// for testability.
type ddbClient interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store is a generic DynamoDB-backed Repository[T]. idOf extracts the
// item's primary key, stored under the table's partition key attribute
// "id".
type Store[T any] struct {
	client    ddbClient
	tableName string
	idOf      func(T) string
}

// New constructs a Store against an existing table.
func New[T any](client ddbClient, tableName string, idOf func(T) string) *Store[T] {
	return &Store[T]{client: client, tableName: tableName, idOf: idOf}
}

func (s *Store[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	var zero T
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return zero, false, fmt.Errorf("dynamo repository: GetItem %s: %w", id, err)
	}
	if out.Item == nil {
		return zero, false, nil
	}

	var item T
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return zero, false, fmt.Errorf("dynamo repository: unmarshaling %s: %w", id, err)
	}
	return item, true, nil
}

// GetAll scans the whole table, paging through LastEvaluatedKey, applies
// filter client-side (the scan-then-filter fallback spec.md §4.6
// describes for expressions that don't map onto a Dynamo key
// condition), then slices the matches by limit/offset.
func (s *Store[T]) GetAll(ctx context.Context, filter repository.Filter[T], limit, offset int) ([]T, error) {
	var matches []T
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamo repository: Scan: %w", err)
		}

		for _, av := range out.Items {
			var item T
			if err := attributevalue.UnmarshalMap(av, &item); err != nil {
				return nil, fmt.Errorf("dynamo repository: unmarshaling scan item: %w", err)
			}
			if filter == nil || filter(item) {
				matches = append(matches, item)
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	if matches == nil {
		matches = []T{}
	}
	if offset >= len(matches) {
		return []T{}, nil
	}
	matches = matches[offset:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store[T]) Save(ctx context.Context, item T) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("dynamo repository: marshaling %s: %w", s.idOf(item), err)
	}
	av["id"] = &types.AttributeValueMemberS{Value: s.idOf(item)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &s.tableName, Item: av})
	if err != nil {
		return fmt.Errorf("dynamo repository: PutItem %s: %w", s.idOf(item), err)
	}
	return nil
}

func (s *Store[T]) Delete(ctx context.Context, id string) (bool, error) {
	exists, err := s.Exists(ctx, id)
	if err != nil || !exists {
		return false, err
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return false, fmt.Errorf("dynamo repository: DeleteItem %s: %w", id, err)
	}
	return true, nil
}

func (s *Store[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, ok, err := s.GetByID(ctx, id)
	return ok, err
}

// All returns every item in the table, for repository/migrate.
func (s *Store[T]) All(ctx context.Context) ([]T, error) {
	return s.GetAll(ctx, nil, 0, 0)
}
