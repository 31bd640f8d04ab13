package detection

import (
	"fmt"
)

// RemovalSteps 指定应用的卸载步骤
func RemovalSteps(appName string) []string {
	return []string{
		"Open your device Settings",
		"Navigate to Apps or Application Manager",
		fmt.Sprintf("Find and tap on '%s'", appName),
		"Tap 'Uninstall' button",
		"Confirm the uninstallation when prompted",
		"Restart your device to ensure complete removal",
		"Run another scan to verify the threat is removed",
	}
}

// DefaultRemovalSteps 找不到应用记录时的通用步骤
func DefaultRemovalSteps() []string {
	return []string{
		"Open your device Settings",
		"Navigate to Apps or Application Manager",
		"Find and tap on the suspicious app",
		"Tap 'Uninstall' or 'Disable' button",
		"Confirm the uninstallation when prompted",
		"Clear any remaining data and cache",
		"Restart your device to ensure complete removal",
		"Run another scan to verify the threat is removed",
	}
}

// RemovalAdditionalInfo 卸载指引附加说明
const RemovalAdditionalInfo = "If the app cannot be uninstalled, check Settings > Security > Device admin apps and revoke its administrator access, then try again. " +
	"Consider changing passwords for accounts used on this device."
