package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
)

const (
	MembershipStatusActive    = "active"
	MembershipStatusCancelled = "cancelled"
	MembershipStatusExpired   = "expired"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	RoleAdmin    = "admin"
	RoleKitchen  = "kitchen"
	RoleCashier  = "cashier"
	RoleWaiter   = "waiter"
	RoleStorage  = "storage"
	RoleCustomer = "customer"
)

const (
	OrderTypeDineIn   = "dine-in"
	OrderTypeToGo     = "to-go"
	OrderTypeDelivery = "delivery"
)

const (
	DurationDays     = "days"
	DurationMonths   = "months"
	DurationYears    = "years"
	DurationLifetime = "lifetime"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash    = "cash"
	PaymentMethodCard    = "card"
	PaymentMethodEwallet = "ewallet"
	PaymentMethodQR      = "qr"
)

const (
	BenefitFoodDiscount     = "food_discount"
	BenefitBeverageDiscount = "beverage_discount"
	BenefitWifiDiscount     = "wifi_discount"
	BenefitCustom           = "custom"
)

const (
	DiscountClassFood     = "food"
	DiscountClassBeverage = "beverage"
)

// StaffRoles are every role except customer.
var StaffRoles = []string{RoleAdmin, RoleKitchen, RoleCashier, RoleWaiter, RoleStorage}

func IsRole(s string) bool {
	switch s {
	case RoleAdmin, RoleKitchen, RoleCashier, RoleWaiter, RoleStorage, RoleCustomer:
		return true
	}
	return false
}

func IsStaff(role string) bool {
	return IsRole(role) && role != RoleCustomer
}

func IsOrderType(s string) bool {
	switch s {
	case OrderTypeDineIn, OrderTypeToGo, OrderTypeDelivery:
		return true
	}
	return false
}

func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func IsPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodEwallet, PaymentMethodQR:
		return true
	}
	return false
}

func IsTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved:
		return true
	}
	return false
}

func IsMembershipStatus(s string) bool {
	switch s {
	case MembershipStatusActive, MembershipStatusCancelled, MembershipStatusExpired:
		return true
	}
	return false
}

func IsDurationType(s string) bool {
	switch s {
	case DurationDays, DurationMonths, DurationYears, DurationLifetime:
		return true
	}
	return false
}

func IsBenefitType(s string) bool {
	switch s {
	case BenefitFoodDiscount, BenefitBeverageDiscount, BenefitWifiDiscount, BenefitCustom:
		return true
	}
	return false
}

func IsDiscountClass(s string) bool {
	return s == DiscountClassFood || s == DiscountClassBeverage
}
