package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// DriverDiag is what the database driver said about a failure, whichever engine raised it.
type DriverDiag struct {
	Engine     string `json:"engine"`
	Code       string `json:"code,omitempty"`
	Extended   string `json:"extended,omitempty"`
	Message    string `json:"message,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Constraint string `json:"constraint,omitempty"`
}

// ErrorDump flattens an error chain for logging.
type ErrorDump struct {
	TopMessage string      `json:"top_message"`
	Code       Code        `json:"code,omitempty"`
	Chain      []string    `json:"chain,omitempty"`
	Driver     *DriverDiag `json:"driver,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error(), Driver: driverDiag(err)}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

// Fields renders the dump as structured log fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.Driver != nil {
		fields["db_engine"] = d.Driver.Engine
		fields["db_code"] = d.Driver.Code
		fields["db_message"] = d.Driver.Message
		if d.Driver.Extended != "" {
			fields["db_extended"] = d.Driver.Extended
		}
		if d.Driver.Table != "" {
			fields["db_table"] = d.Driver.Table
			fields["db_column"] = d.Driver.Column
			fields["db_constraint"] = d.Driver.Constraint
			fields["db_detail"] = d.Driver.Detail
		}
	}
	return fields
}

func driverDiag(err error) *DriverDiag {
	if pgxErr := (*pgconn.PgError)(nil); errors.As(err, &pgxErr) {
		return &DriverDiag{
			Engine:     "postgres",
			Code:       pgxErr.Code,
			Message:    pgxErr.Message,
			Detail:     pgxErr.Detail,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Constraint: pgxErr.ConstraintName,
		}
	}
	if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) {
		return &DriverDiag{
			Engine:     "postgres",
			Code:       string(pqErr.Code),
			Message:    pqErr.Message,
			Detail:     pqErr.Detail,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Constraint: pqErr.Constraint,
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return &DriverDiag{
			Engine:   "sqlite",
			Code:     liteErr.Code.Error(),
			Extended: liteErr.ExtendedCode.Error(),
			Message:  liteErr.Error(),
		}
	}
	return nil
}
