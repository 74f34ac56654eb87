package lifecycle

import (
	"fmt"

	"github.com/HanzKay/KrasandApps-V1/internal/enum"
)

// tableTransitions: a table cycles available → occupied → available, or is
// reserved first. Release on order completion is left to staff.
var tableTransitions = map[string][]string{
	enum.TableStatusAvailable: {enum.TableStatusOccupied, enum.TableStatusReserved},
	enum.TableStatusReserved:  {enum.TableStatusOccupied},
	enum.TableStatusOccupied:  {enum.TableStatusAvailable},
}

func ValidateTableTransition(current, next string) error {
	if contains(tableTransitions[current], next) {
		return nil
	}
	return fmt.Errorf("%w: table cannot go from %s to %s", ErrInvalidTransition, current, next)
}
