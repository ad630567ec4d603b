package domain

type PaymentMethod string

const (
	PaymentMethodVisa            PaymentMethod = "VISA"
	PaymentMethodMastercard      PaymentMethod = "MASTERCARD"
	PaymentMethodAmericanExpress PaymentMethod = "AMERICANEXPRESS"
)

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodVisa, PaymentMethodMastercard, PaymentMethodAmericanExpress:
		return true
	}
	return false
}

type DeliveryMethod string

const (
	DeliveryMethodGLS   DeliveryMethod = "GLS"
	DeliveryMethodUPS   DeliveryMethod = "UPS"
	DeliveryMethodBring DeliveryMethod = "BRING"
)

func (d DeliveryMethod) IsValid() bool {
	switch d {
	case DeliveryMethodGLS, DeliveryMethodUPS, DeliveryMethodBring:
		return true
	}
	return false
}

type Country string

const (
	CountryDK Country = "DK"
	CountryUS Country = "US"
	CountryDE Country = "DE"
)

func (c Country) IsValid() bool {
	switch c {
	case CountryDK, CountryUS, CountryDE:
		return true
	}
	return false
}

type Address struct {
	Street      string  `json:"street"`
	HouseNumber int     `json:"house_number"`
	Zip         int     `json:"zip"`
	Country     Country `json:"country"`
}

type ReasonCode string

const (
	ReasonCodePackageLost  ReasonCode = "package_lost"
	ReasonCodeWrongAddress ReasonCode = "wrong_address"
)

func (r ReasonCode) IsValid() bool {
	return r == ReasonCodePackageLost || r == ReasonCodeWrongAddress
}

type FailureReason struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
}
