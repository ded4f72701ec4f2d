package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	User       UserSvcFacade
	Hierarchy  HierarchySvcFacade
	Commission CommissionSvcFacade
	Approval   ApprovalSvcFacade
	Payout     PayoutSvcFacade
	Payment    PaymentSvcFacade
	Tax        TaxSvcFacade
	Analytics  AnalyticsSvcFacade
}

// FieldEncryptor seals and opens sensitive column values.
type FieldEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
