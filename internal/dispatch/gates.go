package dispatch

import (
	"strings"

	"github.com/keshon/commandhub/internal/unit"
)

// gate inspects one invocation and returns a *DeniedError or nil.
type gate func(c *unit.Command, inv unit.Invocation, owner bool) error

// gates run in this order; the first denial wins. Cooldown is not listed
// because it stamps state and must only run once every gate here passed.
var gates = []gate{
	ownerGate,
	disabledGate,
	betaGate,
	userPermissionGate,
	botPermissionGate,
}

func ownerGate(c *unit.Command, _ unit.Invocation, owner bool) error {
	if c.Settings.OwnerOnly && !owner {
		return &DeniedError{Command: c.Name, Reason: ReasonOwnerOnly}
	}
	return nil
}

func disabledGate(c *unit.Command, _ unit.Invocation, owner bool) error {
	if c.Settings.Disabled && !owner {
		return &DeniedError{Command: c.Name, Reason: ReasonDisabled}
	}
	return nil
}

func betaGate(c *unit.Command, _ unit.Invocation, owner bool) error {
	if c.Settings.Beta && !owner {
		return &DeniedError{Command: c.Name, Reason: ReasonBeta}
	}
	return nil
}

func userPermissionGate(c *unit.Command, inv unit.Invocation, _ bool) error {
	return permissionGate(c, c.UserPerms, ReasonUserPermission, inv.UserPermissions)
}

func botPermissionGate(c *unit.Command, inv unit.Invocation, _ bool) error {
	return permissionGate(c, c.BotPerms, ReasonBotPermission, inv.BotPermissions)
}

// permissionGate denies when need is non-zero and the effective permissions
// are unknown or do not cover it.
func permissionGate(c *unit.Command, need int64, reason Reason, have func() (int64, bool)) error {
	if need == 0 {
		return nil
	}
	perms, ok := have()
	if ok && unit.HasPermissions(perms, need) {
		return nil
	}
	missing := need
	if ok {
		missing = unit.MissingPermissions(perms, need)
	}
	return &DeniedError{
		Command:     c.Name,
		Reason:      reason,
		Requirement: strings.Join(unit.PermissionLabels(missing), ", "),
	}
}
