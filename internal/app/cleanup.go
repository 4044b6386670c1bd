package app

import (
	"fmt"

	"jibunshi/pkg/domain"
)

// CleanupUser deletes all of the user's creative data (interview snapshot,
// timeline, photos, biography) while keeping the account itself. Stored
// photo objects are removed best effort before the rows go.
func (a *App) CleanupUser(userID string) (domain.CleanupReport, error) {
	a.deleteStoredPhotoFiles(userID)
	report, err := a.store.CleanupUserData(userID)
	if err != nil {
		return domain.CleanupReport{}, fmt.Errorf("cleanup user data: %w", err)
	}
	return report, nil
}
