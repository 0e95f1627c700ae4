package condition

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Rows streams the result of sql as attribute maps keyed by column name,
// ready for entity.MapSource. Numeric columns become decimal.Decimal and
// uuid columns their canonical text. SQL NULL stays nil, which a MapSource
// resolves to Absent. Rows are fetched only as the sequence is consumed.
func Rows(ctx context.Context, db Querier, sql string, args ...any) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		rows, err := db.Query(ctx, sql, args...)
		if err != nil {
			yield(nil, errors.Wrap(err, "query"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := rowToMap(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(record, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, errors.Wrap(err, "read rows"))
		}
	}
}

func rowToMap(rows pgx.Rows) (map[string]any, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, errors.Wrap(err, "decode row")
	}
	fields := rows.FieldDescriptions()
	record := make(map[string]any, len(fields))
	for i, fd := range fields {
		v, err := normalize(values[i])
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", fd.Name)
		}
		record[fd.Name] = v
	}
	return record, nil
}

func normalize(v any) (any, error) {
	switch t := v.(type) {
	case pgtype.Numeric:
		return numericToDecimal(t)
	case [16]byte:
		return uuid.UUID(t).String(), nil
	}
	return v, nil
}

func numericToDecimal(n pgtype.Numeric) (any, error) {
	if !n.Valid {
		return nil, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return nil, errors.New("numeric value is not finite")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
