package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"expenseai/internal/core"
	"expenseai/internal/llm"
	"expenseai/internal/services"
)

// Tool names as the model sees them.
const (
	AddExpense                        = "addExpense"
	DeleteExpense                     = "deleteExpense"
	GetExpensesByDate                 = "getExpensesByDate"
	GetExpensesByMonth                = "getExpensesByMonth"
	UpdateExpense                     = "updateExpense"
	UpdateExpenseByDateAndDescription = "updateExpenseByDateAndDescription"
	GetMonthlyTotals                  = "getMonthlyTotals"
	ClassifyCategoryByEmbedding       = "classifyCategoryByEmbedding"
)

type (
	addExpenseArgs struct {
		Date        string           `json:"date"`
		Category    string           `json:"category"`
		Amount      *decimal.Decimal `json:"amount"`
		Description string           `json:"description"`
	}

	idArgs struct {
		ID *ID `json:"id"`
	}

	dateArgs struct {
		Date string `json:"date"`
	}

	monthArgs struct {
		YearMonth string `json:"yearMonth"`
	}

	updateExpenseArgs struct {
		ID          *ID              `json:"id"`
		Date        *string          `json:"date"`
		Category    *string          `json:"category"`
		Amount      *decimal.Decimal `json:"amount"`
		Description *string          `json:"description"`
	}

	updateByDateAndDescriptionArgs struct {
		Date        string           `json:"date"`
		Description string           `json:"description"`
		Amount      *decimal.Decimal `json:"amount"`
		Category    *string          `json:"category"`
	}

	classifyArgs struct {
		Description string `json:"description"`
	}

	deleteResult struct {
		Deleted int64 `json:"deleted"`
	}
)

// ExpenseTools binds the expense service and the classifier to the tool table.
type ExpenseTools struct {
	svc        *services.ExpenseService
	classifier services.Categorizer
}

func NewExpenseTools(svc *services.ExpenseService, classifier services.Categorizer) *ExpenseTools {
	return &ExpenseTools{svc: svc, classifier: classifier}
}

// NewExpenseRegistry returns a registry holding every expense tool.
func NewExpenseRegistry(svc *services.ExpenseService, classifier services.Categorizer) *Registry {
	r := NewRegistry()
	NewExpenseTools(svc, classifier).Register(r)
	return r
}

func (t *ExpenseTools) Register(r *Registry) {
	r.Register(llm.ToolSpec{
		Name:        AddExpense,
		Description: "Add a new expense record. Use only for new spending, never to correct an existing one.",
		Parameters: object(map[string]*llm.Schema{
			"date":        dateSchema("Day of the expense, yyyy-MM-dd"),
			"category":    categorySchema(),
			"amount":      {Type: "number", Description: "Amount spent, non-negative"},
			"description": {Type: "string", Description: "Short description, e.g. Dinner"},
		}, "date", "category", "amount", "description"),
	}, bind(t.AddExpense))

	r.Register(llm.ToolSpec{
		Name:        DeleteExpense,
		Description: "Delete the expense with the given id.",
		Parameters:  object(map[string]*llm.Schema{"id": idSchema()}, "id"),
	}, bind(t.DeleteExpense))

	r.Register(llm.ToolSpec{
		Name:        GetExpensesByDate,
		Description: "List the expenses recorded on one day.",
		Parameters:  object(map[string]*llm.Schema{"date": dateSchema("Day, yyyy-MM-dd")}, "date"),
	}, bind(t.GetExpensesByDate))

	r.Register(llm.ToolSpec{
		Name:        GetExpensesByMonth,
		Description: "List the expenses recorded in one calendar month.",
		Parameters:  object(map[string]*llm.Schema{"yearMonth": monthSchema()}, "yearMonth"),
	}, bind(t.GetExpensesByMonth))

	r.Register(llm.ToolSpec{
		Name:        UpdateExpense,
		Description: "Correct an existing expense by id. Omitted fields stay unchanged.",
		Parameters: object(map[string]*llm.Schema{
			"id":          idSchema(),
			"date":        dateSchema("New day, yyyy-MM-dd"),
			"category":    categorySchema(),
			"amount":      {Type: "number", Description: "New amount"},
			"description": {Type: "string", Description: "New description"},
		}, "id"),
	}, bind(t.UpdateExpense))

	r.Register(llm.ToolSpec{
		Name: UpdateExpenseByDateAndDescription,
		Description: "Correct an existing expense identified by its day and description (case-insensitive). " +
			"When several match, the most recently added one is updated.",
		Parameters: object(map[string]*llm.Schema{
			"date":        dateSchema("Day of the expense to correct, yyyy-MM-dd"),
			"description": {Type: "string", Description: "Description of the expense to correct"},
			"amount":      {Type: "number", Description: "New amount"},
			"category":    categorySchema(),
		}, "date", "description"),
	}, bind(t.UpdateExpenseByDateAndDescription))

	r.Register(llm.ToolSpec{
		Name:        GetMonthlyTotals,
		Description: "Per-category totals and the overall total for a month. Report these numbers verbatim.",
		Parameters:  object(map[string]*llm.Schema{"yearMonth": monthSchema()}, "yearMonth"),
	}, bind(t.GetMonthlyTotals))

	r.Register(llm.ToolSpec{
		Name:        ClassifyCategoryByEmbedding,
		Description: "Pick the closest expense category for a free-text description.",
		Parameters: object(map[string]*llm.Schema{
			"description": {Type: "string", Description: "What the money was spent on"},
		}, "description"),
	}, bind(t.ClassifyCategoryByEmbedding))
}

func (t *ExpenseTools) AddExpense(ctx context.Context, args addExpenseArgs) (core.Expense, error) {
	date, err := parseDate("date", args.Date)
	if err != nil {
		return core.Expense{}, err
	}
	if args.Amount == nil {
		return core.Expense{}, fmt.Errorf("%w: amount is required", core.ErrInvalidArgument)
	}
	return t.svc.Create(ctx, core.Expense{
		Date:        date,
		Category:    core.Category(args.Category),
		Amount:      *args.Amount,
		Description: strings.TrimSpace(args.Description),
	})
}

func (t *ExpenseTools) DeleteExpense(ctx context.Context, args idArgs) (deleteResult, error) {
	id, err := requireID(args.ID)
	if err != nil {
		return deleteResult{}, err
	}
	if err := t.svc.Delete(ctx, id); err != nil {
		return deleteResult{}, err
	}
	return deleteResult{Deleted: id}, nil
}

func (t *ExpenseTools) GetExpensesByDate(ctx context.Context, args dateArgs) ([]core.Expense, error) {
	date, err := parseDate("date", args.Date)
	if err != nil {
		return nil, err
	}
	return t.svc.ByDate(ctx, date)
}

func (t *ExpenseTools) GetExpensesByMonth(ctx context.Context, args monthArgs) ([]core.Expense, error) {
	month, err := parseMonth(args.YearMonth)
	if err != nil {
		return nil, err
	}
	return t.svc.ByMonth(ctx, month)
}

func (t *ExpenseTools) UpdateExpense(ctx context.Context, args updateExpenseArgs) (core.Expense, error) {
	id, err := requireID(args.ID)
	if err != nil {
		return core.Expense{}, err
	}
	patch := core.ExpensePatch{
		Category:    args.Category,
		Amount:      args.Amount,
		Description: args.Description,
	}
	if args.Date != nil {
		d, err := parseDate("date", *args.Date)
		if err != nil {
			return core.Expense{}, err
		}
		patch.Date = &d
	}
	return t.svc.Update(ctx, id, patch)
}

func (t *ExpenseTools) UpdateExpenseByDateAndDescription(ctx context.Context, args updateByDateAndDescriptionArgs) (core.Expense, error) {
	date, err := parseDate("date", args.Date)
	if err != nil {
		return core.Expense{}, err
	}
	return t.svc.UpdateByDateAndDescription(ctx, date, args.Description, core.ExpensePatch{
		Category: args.Category,
		Amount:   args.Amount,
	})
}

func (t *ExpenseTools) GetMonthlyTotals(ctx context.Context, args monthArgs) (core.MonthlyTotals, error) {
	month, err := parseMonth(args.YearMonth)
	if err != nil {
		return core.MonthlyTotals{}, err
	}
	return t.svc.MonthlyTotals(ctx, month)
}

func (t *ExpenseTools) ClassifyCategoryByEmbedding(ctx context.Context, args classifyArgs) (core.Category, error) {
	return t.classifier.Classify(ctx, args.Description)
}

func requireID(id *ID) (int64, error) {
	if id == nil {
		return 0, fmt.Errorf("%w: id is required", core.ErrInvalidArgument)
	}
	return int64(*id), nil
}

func object(props map[string]*llm.Schema, required ...string) *llm.Schema {
	return &llm.Schema{Type: "object", Properties: props, Required: required}
}

func dateSchema(desc string) *llm.Schema {
	return &llm.Schema{Type: "string", Description: desc}
}

func monthSchema() *llm.Schema {
	return &llm.Schema{Type: "string", Description: "Calendar month, yyyy-MM"}
}

func idSchema() *llm.Schema {
	return &llm.Schema{Type: "integer", Description: "Expense id"}
}

func categorySchema() *llm.Schema {
	labels := core.Categories()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	return &llm.Schema{
		Type:        "string",
		Description: "One of " + strings.Join(names, ", ") + "; free text is classified",
	}
}
