package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	ordersTable  = "voice_orders"
	itemsTable   = "order_items"
	historyTable = "article_history"

	textSize = 2147483647
)

var (
	ordersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "user_id", Type: field.TypeString, Size: 64},
		{Name: "audio_ref", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "transcription", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "status", Type: field.TypeString, Size: 16, Default: "pending"},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// OrdersTable holds the voice_orders schema.
	OrdersTable = &schema.Table{
		Name:       ordersTable,
		Columns:    ordersColumns,
		PrimaryKey: []*schema.Column{ordersColumns[0]},
		Indexes: []*schema.Index{
			{Name: "voiceorder_user_id_created_at", Columns: []*schema.Column{ordersColumns[1], ordersColumns[5]}},
		},
	}

	itemsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "order_id", Type: field.TypeString, Size: 64},
		{Name: "position", Type: field.TypeInt},
		{Name: "article_name", Type: field.TypeString, Size: 255},
		{Name: "quantity", Type: field.TypeInt},
		{Name: "unit", Type: field.TypeString, Size: 50},
		{Name: "matched_article_id", Type: field.TypeString, Size: 64, Nullable: true},
		{Name: "matched_article_name", Type: field.TypeString, Size: 255, Nullable: true},
		{Name: "matched_supplier", Type: field.TypeString, Size: 255, Nullable: true},
		{Name: "matched_price", Type: field.TypeInt64, Nullable: true},
		{Name: "confidence", Type: field.TypeInt, Nullable: true},
		{Name: "match_source", Type: field.TypeString, Size: 16, Nullable: true},
		{Name: "confirmed", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ItemsTable holds the order_items schema.
	ItemsTable = &schema.Table{
		Name:       itemsTable,
		Columns:    itemsColumns,
		PrimaryKey: []*schema.Column{itemsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "order_items_voice_orders_items",
				Columns:    []*schema.Column{itemsColumns[1]},
				RefColumns: []*schema.Column{ordersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "orderitem_order_id_position", Columns: []*schema.Column{itemsColumns[1], itemsColumns[2]}},
		},
	}

	historyColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "user_id", Type: field.TypeString, Size: 64},
		{Name: "article_id", Type: field.TypeString, Size: 64},
		{Name: "article_name", Type: field.TypeString, Size: 255},
		{Name: "supplier", Type: field.TypeString, Size: 255, Nullable: true},
		{Name: "ean", Type: field.TypeString, Size: 20, Nullable: true},
		{Name: "unit", Type: field.TypeString, Size: 50, Nullable: true},
		{Name: "last_price", Type: field.TypeInt64, Nullable: true},
		{Name: "order_count", Type: field.TypeInt, Default: 1},
		{Name: "last_ordered_at", Type: field.TypeTime},
		{Name: "created_at", Type: field.TypeTime},
	}
	// HistoryTable holds the article_history schema.
	HistoryTable = &schema.Table{
		Name:       historyTable,
		Columns:    historyColumns,
		PrimaryKey: []*schema.Column{historyColumns[0]},
		Indexes: []*schema.Index{
			{Name: "articlehistory_user_id_article_id", Unique: true, Columns: []*schema.Column{historyColumns[1], historyColumns[2]}},
			{Name: "articlehistory_user_id_last_ordered_at", Columns: []*schema.Column{historyColumns[1], historyColumns[9]}},
		},
	}

	// Tables lists every table in creation order.
	Tables = []*schema.Table{OrdersTable, ItemsTable, HistoryTable}
)

func init() {
	ItemsTable.ForeignKeys[0].RefTable = OrdersTable
}

// Migrate creates or updates the schema in place. Columns and indexes are
// only ever added.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("db.migrate.start", "dialect", db.Dialect)
	m, err := schema.NewMigrate(db.Driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		logger.Error("db.migrate.failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("db.migrate.done", "tables", len(Tables))
	return nil
}
