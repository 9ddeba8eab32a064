package promotions

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
)

// Engine evaluates candidate promotions against a ticket snapshot. It is
// pure: no persistence, no clock, everything comes in as arguments. Usage
// counters are only advanced by a committed sale, never here.
type Engine struct {
	// BirthdayGraceDays widens the birthday match window on both sides.
	BirthdayGraceDays int
}

// EvaluationResult is the outcome of one engine run.
type EvaluationResult struct {
	// Discount is the total discount, already clamped to [0, subtotal].
	Discount decimal.Decimal
	// Applied lists the promotions that contributed, in application order.
	Applied []AppliedPromotion
}

// AppliedPromotion records one contributing promotion and its share.
type AppliedPromotion struct {
	PromotionID uuid.UUID
	Name        string
	Discount    decimal.Decimal
}

type candidate struct {
	promotion *models.Promotion
	discount  decimal.Decimal
}

// Evaluate picks the single best non-combinable discount, stacks every
// applicable combinable promotion on top, and clamps the sum to the ticket
// subtotal.
func (e Engine) Evaluate(lines []models.TicketLine, customer *models.Customer, now time.Time, promotions []models.Promotion) EvaluationResult {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal)
	}
	result := EvaluationResult{Discount: decimal.Zero}
	if len(lines) == 0 || subtotal.LessThanOrEqual(decimal.Zero) {
		return result
	}

	var exclusive []candidate
	var combinable []candidate
	for i := range promotions {
		promo := &promotions[i]
		if !e.eligible(promo, lines, customer, now) {
			continue
		}
		discount := e.discountFor(promo, lines)
		if discount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		c := candidate{promotion: promo, discount: discount}
		if promo.Combinable {
			combinable = append(combinable, c)
		} else {
			exclusive = append(exclusive, c)
		}
	}

	// best single non-combinable wins, earliest created breaks ties
	sort.SliceStable(exclusive, func(i, j int) bool {
		if !exclusive[i].discount.Equal(exclusive[j].discount) {
			return exclusive[i].discount.GreaterThan(exclusive[j].discount)
		}
		return exclusive[i].promotion.CreatedAt.Before(exclusive[j].promotion.CreatedAt)
	})

	total := decimal.Zero
	if len(exclusive) > 0 {
		best := exclusive[0]
		total = total.Add(best.discount)
		result.Applied = append(result.Applied, AppliedPromotion{
			PromotionID: best.promotion.ID,
			Name:        best.promotion.Name,
			Discount:    best.discount,
		})
	}
	for _, c := range combinable {
		total = total.Add(c.discount)
		result.Applied = append(result.Applied, AppliedPromotion{
			PromotionID: c.promotion.ID,
			Name:        c.promotion.Name,
			Discount:    c.discount,
		})
	}

	if total.GreaterThan(subtotal) {
		total = subtotal
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	result.Discount = total.Round(2)
	return result
}

func (e Engine) eligible(promo *models.Promotion, lines []models.TicketLine, customer *models.Customer, now time.Time) bool {
	if !promo.IsActive {
		return false
	}
	if now.Before(promo.StartDate) || now.After(promo.EndDate) {
		return false
	}
	if promo.MaxUsage != nil && promo.UsageCount >= *promo.MaxUsage {
		return false
	}

	switch promo.Type {
	case enums.PromotionTypeCombo:
		return comboSatisfied(promo, lines)
	case enums.PromotionTypeBirthday:
		if !e.isBirthday(customer, now) {
			return false
		}
	}

	for _, line := range lines {
		if promo.MatchesProduct(line.ProductID) {
			return true
		}
	}
	return false
}

func (e Engine) isBirthday(customer *models.Customer, now time.Time) bool {
	if customer == nil || customer.BirthDate == nil {
		return false
	}
	birth := *customer.BirthDate
	for offset := -e.BirthdayGraceDays; offset <= e.BirthdayGraceDays; offset++ {
		day := now.AddDate(0, 0, offset)
		month, dom := birth.Month(), birth.Day()
		// Feb 29 birthdays observe Feb 28 in non-leap years
		if month == time.February && dom == 29 && !isLeapYear(day.Year()) {
			dom = 28
		}
		if day.Month() == month && day.Day() == dom {
			return true
		}
	}
	return false
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func (e Engine) discountFor(promo *models.Promotion, lines []models.TicketLine) decimal.Decimal {
	matchingSubtotal := decimal.Zero
	matchingQty := 0
	for _, line := range lines {
		if promo.MatchesProduct(line.ProductID) {
			matchingSubtotal = matchingSubtotal.Add(line.Subtotal)
			matchingQty += line.Quantity
		}
	}

	switch promo.Type {
	case enums.PromotionTypePercentage, enums.PromotionTypeBirthday:
		return matchingSubtotal.Mul(promo.Value).Div(decimal.NewFromInt(100))

	case enums.PromotionTypeFixedAmount:
		// min purchase counts only the lines the promotion covers
		if promo.MinAmount != nil && matchingSubtotal.LessThan(*promo.MinAmount) {
			return decimal.Zero
		}
		if promo.Value.GreaterThan(matchingSubtotal) {
			return matchingSubtotal
		}
		return promo.Value

	case enums.PromotionTypeBuyXGetY:
		if promo.BuyQuantity <= 0 || matchingQty < promo.BuyQuantity {
			return decimal.Zero
		}
		groups := matchingQty / promo.BuyQuantity
		freePerGroup := promo.BuyQuantity - promo.GetQuantity
		if freePerGroup <= 0 {
			return decimal.Zero
		}
		averageUnitPrice := matchingSubtotal.Div(decimal.NewFromInt(int64(matchingQty)))
		return averageUnitPrice.Mul(decimal.NewFromInt(int64(groups * freePerGroup)))

	case enums.PromotionTypeCombo:
		if promo.ComboPrice == nil {
			return decimal.Zero
		}
		constituents := comboConstituentsPrice(promo, lines)
		discount := constituents.Sub(*promo.ComboPrice)
		if discount.IsNegative() {
			return decimal.Zero
		}
		return discount
	}
	return decimal.Zero
}

// comboSatisfied checks that every constituent is present in at least its
// required quantity.
func comboSatisfied(promo *models.Promotion, lines []models.TicketLine) bool {
	if len(promo.Products) == 0 {
		return false
	}
	quantities := map[uuid.UUID]int{}
	for _, line := range lines {
		quantities[line.ProductID] += line.Quantity
	}
	for _, constituent := range promo.Products {
		required := constituent.Quantity
		if required <= 0 {
			required = 1
		}
		if quantities[constituent.ProductID] < required {
			return false
		}
	}
	return true
}

// comboConstituentsPrice sums the ticket prices of one combo instance, using
// the unit prices frozen on the ticket lines.
func comboConstituentsPrice(promo *models.Promotion, lines []models.TicketLine) decimal.Decimal {
	unitPrices := map[uuid.UUID]decimal.Decimal{}
	for _, line := range lines {
		if _, ok := unitPrices[line.ProductID]; !ok {
			unitPrices[line.ProductID] = line.UnitPrice
		}
	}
	total := decimal.Zero
	for _, constituent := range promo.Products {
		required := constituent.Quantity
		if required <= 0 {
			required = 1
		}
		total = total.Add(unitPrices[constituent.ProductID].Mul(decimal.NewFromInt(int64(required))))
	}
	return total
}
