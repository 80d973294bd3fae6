package enums

// ActorRole identifies who is acting on an order or subscription.
type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleOperator ActorRole = "operator"
	ActorRoleSystem   ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleCustomer,
	ActorRoleOperator,
	ActorRoleSystem,
}

func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the role is a known value.
func (r ActorRole) IsValid() bool {
	for _, valid := range validActorRoles {
		if r == valid {
			return true
		}
	}
	return false
}
