package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyUserContext = "USER_CONTEXT"
	KeyIsOperator  = "isOperator"
)

// Headers set by the authenticating proxy in front of the service.
const (
	HeaderUserEmail = "X-Auth-User-Email"
	HeaderUserName  = "X-Auth-User-Name"
	HeaderUserType  = "X-Auth-User-Type"
	HeaderUserRoles = "X-Auth-User-Roles"
)

// RoleAdministrator grants administrative rights on donations.
const RoleAdministrator = "Administrator"
