package testutils

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DBClient administers per-test databases on a shared server.
type DBClient struct {
	conn *pgx.Conn
}

type TestDB struct {
	Name             string
	ConnectionString string
}

func NewDBClient(ctx context.Context, connString string) (client *DBClient, err error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		err = fmt.Errorf("failed to connect to database: %w", err)
		return
	}
	client = &DBClient{
		conn: conn,
	}
	return
}

const sourceDBName = "_template"

// InitializeSourceDB creates the template database every test database is
// copied from and migrates it with the platereg binary.
func (client DBClient) InitializeSourceDB(ctx context.Context, binaryPath string) (err error) {
	_, err = client.conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE "%s"`, sourceDBName))
	if err != nil {
		err = fmt.Errorf("failed to create database: %w", err)
		return
	}
	config := client.conn.Config().Copy()
	config.Database = sourceDBName
	err = MigrateToLatest(ctx, binaryPath, connectionString(*config))
	if err != nil {
		err = fmt.Errorf("failed to migrate database to latest schema version: %w", err)
	}
	return
}

func (client DBClient) CleanupSourceDB(ctx context.Context) (err error) {
	_, err = client.conn.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS "%s"`, sourceDBName))
	if err != nil {
		err = fmt.Errorf("failed to drop source database: %w", err)
	}
	return
}

func (client DBClient) newTestDB() TestDB {
	name := GenerateRandomUUID().String()
	config := client.conn.Config().Copy()
	config.Database = name
	return TestDB{Name: name, ConnectionString: connectionString(*config)}
}

// CreateTestDB copies the migrated source database.
func (client DBClient) CreateTestDB(ctx context.Context) (testDB TestDB, err error) {
	testDB = client.newTestDB()
	err = client.ResetTestDB(ctx, testDB.Name)
	return
}

// CreateEmptyDB creates a database without any schema.
func (client DBClient) CreateEmptyDB(ctx context.Context) (testDB TestDB, err error) {
	testDB = client.newTestDB()
	_, err = client.conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE "%s"`, testDB.Name))
	if err != nil {
		err = fmt.Errorf("failed to create database: %w", err)
	}
	return
}

func (client DBClient) CleanupTestDB(ctx context.Context, testDBName string) (err error) {
	_, err = client.conn.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS "%s" WITH (FORCE)`, testDBName))
	if err != nil {
		err = fmt.Errorf("failed to drop database: %w", err)
	}
	return
}

func (client DBClient) ResetTestDB(ctx context.Context, testDBName string) error {
	err := client.CleanupTestDB(ctx, testDBName)
	if err != nil {
		return err
	}
	_, err = client.conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE "%s" WITH TEMPLATE "%s"`, testDBName, sourceDBName))
	if err != nil {
		return fmt.Errorf("failed to copy database from source: %w", err)
	}
	return nil
}

func (client DBClient) Close(ctx context.Context) error {
	return client.conn.Close(ctx)
}

// TruncateTestDB empties the vehicle cache of a database a server is still
// connected to, where recreating the database would break its pool.
func TruncateTestDB(ctx context.Context, testDB TestDB) (err error) {
	conn, err := pgx.Connect(ctx, testDB.ConnectionString)
	if err != nil {
		return fmt.Errorf("failed to connect to test database: %w", err)
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, `TRUNCATE car`)
	if err != nil {
		err = fmt.Errorf("failed to truncate test database: %w", err)
	}
	return
}
