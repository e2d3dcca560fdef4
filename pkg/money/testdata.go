package money

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// TestDataGenerator produces realistic import fixtures using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a fixed seed for
// reproducible fixtures.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// AccountName generates a plausible account label.
func (g *TestDataGenerator) AccountName() string {
	return fmt.Sprintf("%s %s", g.faker.Company(), g.faker.RandomString([]string{"Checking", "Savings", "Card"}))
}

// CSVRow generates one import CSV line for the given account and category.
func (g *TestDataGenerator) CSVRow(txType, account, category string) string {
	date := g.faker.DateRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	).Format("2006-01-02")
	amount := g.faker.Price(1, 5000)
	title := strings.ReplaceAll(g.faker.ProductName(), ",", " ")

	return fmt.Sprintf("%s,%s,%s,%s,%.2f,", txType, title, date, account+","+category, amount)
}

// CSVDocument generates a header line plus n income/expense data rows.
func (g *TestDataGenerator) CSVDocument(n int, account, incomeCategory, expenseCategory string) string {
	var sb strings.Builder
	sb.WriteString("type,title,date,account,category,amount,notes\n")
	for i := 0; i < n; i++ {
		txType := "expense"
		category := expenseCategory
		if g.faker.Bool() {
			txType = "income"
			category = incomeCategory
		}
		date := g.faker.DateRange(
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		).Format("2006-01-02")
		title := strings.ReplaceAll(g.faker.ProductName(), ",", " ")
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%.2f,\n",
			txType, title, date, account, category, g.faker.Price(1, 5000)))
	}
	return sb.String()
}
