package services

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
)

// ContentType describes a resource exposed through listings, metadata and exports.
type ContentType struct {
	Name       string                   `json:"name"`
	Label      string                   `json:"label"`
	Resource   permissions.ResourceType `json:"resource"`
	Exportable bool                     `json:"exportable"`
	Actions    []permissions.Action     `json:"actions,omitempty"`

	model  any
	loader func(q *gorm.DB, owner auditctx.Actor) (any, error)
}

// Field describes one serialised attribute of a content type.
type Field struct {
	Name     string `json:"name"`
	Column   string `json:"column"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Primary  bool   `json:"primary,omitempty"`
}

func loadAll[T any](order string) func(q *gorm.DB, _ auditctx.Actor) (any, error) {
	return func(q *gorm.DB, _ auditctx.Actor) (any, error) {
		var rows []T
		if err := q.Order(order).Find(&rows).Error; err != nil {
			return nil, err
		}
		return rows, nil
	}
}

var contentTypes = []ContentType{
	{Name: "sales_orders", Label: "Sales orders", Resource: permissions.ResourceSalesOrder, Exportable: true, model: &models.SalesOrder{}, loader: loadAll[models.SalesOrder]("created_at")},
	{Name: "pipelines", Label: "Pipelines", Resource: permissions.ResourcePipeline, Exportable: true, model: &models.Pipeline{}, loader: loadAll[models.Pipeline]("created_at")},
	{Name: "purchase_orders", Label: "Purchase orders", Resource: permissions.ResourcePurchaseOrder, Exportable: true, model: &models.PurchaseOrder{}, loader: loadAll[models.PurchaseOrder]("created_at")},
	{Name: "production_orders", Label: "Production orders", Resource: permissions.ResourceProductionOrder, Exportable: true, model: &models.ProductionOrder{}, loader: loadAll[models.ProductionOrder]("created_at")},
	{Name: "outbound_orders", Label: "Outbound orders", Resource: permissions.ResourceOutboundOrder, Exportable: true, model: &models.OutboundOrder{}, loader: loadAll[models.OutboundOrder]("created_at")},
	{Name: "payments", Label: "Payments", Resource: permissions.ResourcePayment, Exportable: true, model: &models.Payment{}, loader: loadPayments},
	{Name: "download_tasks", Label: "Downloads", model: &models.DownloadTask{}},
	{Name: "audit_logs", Label: "Audit log", model: &models.AuditLog{}},
}

func loadPayments(q *gorm.DB, owner auditctx.Actor) (any, error) {
	categories := permissions.AllowedPaymentCategories(owner.Role)
	rows := []models.Payment{}
	if len(categories) == 0 {
		return rows, nil
	}
	if err := q.Where("category IN ?", categories).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func lookupContentType(name string) (ContentType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, ct := range contentTypes {
		if ct.Name == name {
			return ct, true
		}
	}
	return ContentType{}, false
}

// MetadataService describes content types and their fields.
type MetadataService struct {
	db    *gorm.DB
	cache *sync.Map
}

// NewMetadataService constructs a MetadataService.
func NewMetadataService(db *gorm.DB) (*MetadataService, error) {
	if db == nil {
		return nil, fmt.Errorf("metadata service: db is required")
	}
	return &MetadataService{db: db, cache: &sync.Map{}}, nil
}

// ContentTypes lists every content type with the transitions it exposes.
func (s *MetadataService) ContentTypes(_ context.Context) []ContentType {
	out := make([]ContentType, 0, len(contentTypes))
	for _, ct := range contentTypes {
		cp := ct
		for _, def := range permissions.ForResource(ct.Resource) {
			cp.Actions = append(cp.Actions, def.Action)
		}
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Fields lists the serialised fields of the named content type in declaration order.
func (s *MetadataService) Fields(_ context.Context, name string) ([]Field, error) {
	ct, ok := lookupContentType(name)
	if !ok {
		return nil, ErrUnknownResource
	}

	parsed, err := schema.Parse(ct.model, s.cache, s.db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("metadata service: parse %s: %w", ct.Name, err)
	}

	fields := make([]Field, 0, len(parsed.Fields))
	for _, field := range parsed.Fields {
		if field.DBName == "" {
			continue
		}
		jsonName := jsonFieldName(field)
		if jsonName == "-" {
			continue
		}
		fields = append(fields, Field{
			Name:     jsonName,
			Column:   field.DBName,
			Type:     fieldKind(field.FieldType),
			Required: field.NotNull && !field.PrimaryKey,
			Primary:  field.PrimaryKey,
		})
	}
	return fields, nil
}

func jsonFieldName(field *schema.Field) string {
	tag := field.Tag.Get("json")
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return field.DBName
	}
	return name
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	jsonType    = reflect.TypeOf(datatypes.JSON{})
	jsonMapType = reflect.TypeOf(datatypes.JSONMap{})
)

func fieldKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return "datetime"
	case decimalType:
		return "decimal"
	case jsonType, jsonMapType:
		return "json"
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	default:
		return "string"
	}
}
