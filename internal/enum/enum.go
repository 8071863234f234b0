package enum

// ── Order lifecycle (linear: PENDING -> COMPLETED -> RECEIVED) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusReceived  = "RECEIVED"
)

// ── Roles ──

const (
	RoleCustomer = "CUSTOMER"
	RoleStaff    = "STAFF"
)

// ── Payment methods ──

const (
	PaymentMethodCash    = "CASH"
	PaymentMethodBank    = "BANK"
	PaymentMethodEWallet = "EWALLET"
	PaymentMethodCard    = "CARD"
)

// ── Counter sequences and ID prefixes ──

const (
	SeqOrders    = "orders"
	SeqCustomers = "customers"
	SeqPayments  = "payments"
	SeqMenu      = "menu"
	SeqAddOns    = "addons"
	SeqSauces    = "sauces"
)

const (
	PrefixOrder    = "O"
	PrefixCustomer = "C"
	PrefixPayment  = "P"
	PrefixMenu     = "M"
	PrefixAddOn    = "AM"
	PrefixSauce    = "SM"

	// StaffProfileID is fixed, never minted from a counter. Assigned once
	// to the first profile created with the designated staff email.
	StaffProfileID = "S0001"

	IDWidth = 4
)

// ── Store collections ──

const (
	ColMenu       = "Menu"
	ColCategories = "Category"
	ColSauces     = "Sauce"
	ColAddOns     = "AddOn"
	ColDrinks     = "Drink"
	ColOrders     = "Orders"
	ColPayments   = "Payments"
	ColProfiles   = "Profiles"
	ColRewards    = "Rewards"
	ColCounters   = "Counters"
	ColTasks      = "SettlementTasks"
)
