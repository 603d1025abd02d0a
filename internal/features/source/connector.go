package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Connector holds one pooled connection to an external SQL database
type Connector struct {
	dbType string
	db     *sql.DB
}

func NewConnector(ctx context.Context, src *ObjectSource) (*Connector, error) {
	connStr, driver, err := buildConnectionString(src)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &Connector{dbType: src.DBType, db: db}, nil
}

func (c *Connector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func buildConnectionString(src *ObjectSource) (connStr, driver string, err error) {
	switch src.DBType {
	case "postgresql":
		sslMode := src.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		connStr = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			src.Host, src.Port, src.Username, src.Password, src.Database, sslMode)
		return connStr, "postgres", nil
	case "mysql":
		connStr = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			src.Username, src.Password, src.Host, src.Port, src.Database)
		return connStr, "mysql", nil
	default:
		return "", "", fmt.Errorf("unsupported db type: %s", src.DBType)
	}
}

// FetchRow reads one object row by id and returns it as a map. A missing row
// returns nil, nil.
func (c *Connector) FetchRow(ctx context.Context, mapping *TableMapping, objectID string) (map[string]interface{}, error) {
	placeholder := "?"
	if c.dbType == "postgresql" {
		placeholder = "$1"
	}

	// Table and column names come from the admin-managed source registry,
	// not from request input.
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", mapping.Table, mapping.IDColumn, placeholder)

	rows, err := c.db.QueryContext(ctx, query, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	data, err := rowsToMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to process query results: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data[0], nil
}

func rowsToMaps(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []map[string]interface{}{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}
		result = append(result, row)
	}

	return result, rows.Err()
}
