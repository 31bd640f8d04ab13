package detection

const (
	PermReadSMS                  = "android.permission.READ_SMS"
	PermReceiveSMS               = "android.permission.RECEIVE_SMS"
	PermSendSMS                  = "android.permission.SEND_SMS"
	PermReadCallLog              = "android.permission.READ_CALL_LOG"
	PermProcessOutgoingCalls     = "android.permission.PROCESS_OUTGOING_CALLS"
	PermRecordAudio              = "android.permission.RECORD_AUDIO"
	PermCamera                   = "android.permission.CAMERA"
	PermAccessFineLocation       = "android.permission.ACCESS_FINE_LOCATION"
	PermAccessCoarseLocation     = "android.permission.ACCESS_COARSE_LOCATION"
	PermReadContacts             = "android.permission.READ_CONTACTS"
	PermReadExternalStorage      = "android.permission.READ_EXTERNAL_STORAGE"
	PermWriteExternalStorage     = "android.permission.WRITE_EXTERNAL_STORAGE"
	PermGetAccounts              = "android.permission.GET_ACCOUNTS"
	PermReadCalendar             = "android.permission.READ_CALENDAR"
	PermBodySensors              = "android.permission.BODY_SENSORS"
	PermCallPhone                = "android.permission.CALL_PHONE"
	PermSystemAlertWindow        = "android.permission.SYSTEM_ALERT_WINDOW"
	PermBindAccessibilityService = "android.permission.BIND_ACCESSIBILITY_SERVICE"
	PermBindNotificationListener = "android.permission.BIND_NOTIFICATION_LISTENER_SERVICE"
	PermReadPhoneState           = "android.permission.READ_PHONE_STATE"
	PermissionPrefix             = "android.permission."
	PlayStoreInstaller           = "com.android.vending"
	UnknownPermissionDescription = "Unknown permission"
)

// dangerousPermissions 危险权限字典（有序）
var dangerousPermissions = []struct {
	Name        string
	Description string
}{
	{PermReadSMS, "Can read your text messages"},
	{PermReceiveSMS, "Can intercept incoming messages"},
	{PermReadCallLog, "Can access your call history"},
	{PermProcessOutgoingCalls, "Can monitor outgoing calls"},
	{PermRecordAudio, "Can record audio from microphone"},
	{PermCamera, "Can access camera"},
	{PermAccessFineLocation, "Can track precise location"},
	{PermAccessCoarseLocation, "Can track approximate location"},
	{PermReadContacts, "Can read your contacts"},
	{PermReadExternalStorage, "Can read files on device"},
	{PermWriteExternalStorage, "Can modify files on device"},
	{PermGetAccounts, "Can access account information"},
	{PermReadCalendar, "Can read calendar events"},
	{PermBodySensors, "Can access body sensor data"},
	{PermSendSMS, "Can send text messages"},
	{PermCallPhone, "Can make phone calls"},
	{PermSystemAlertWindow, "Can display over other apps"},
	{PermBindAccessibilityService, "Can monitor screen content"},
	{PermBindNotificationListener, "Can read notifications"},
	{PermReadPhoneState, "Can access phone identity"},
}

// BuiltinRules 内置规则库
func BuiltinRules() *RuleSet {
	rs := &RuleSet{
		// ==================== 可信发布者（前缀匹配） ====================
		TrustedPrefixes: []string{
			"com.google.android",
			"com.android",
			"com.google",
			"com.samsung",
			"com.sec.android",
			"android",
			"system",
			"com.whatsapp",
			"com.facebook",
			"com.instagram",
			"com.twitter",
			"com.spotify",
			"com.netflix",
			"com.amazon",
			"com.uber",
			"com.snapchat",
			"com.tiktok",
			"com.discord",
			"com.telegram",
			"com.microsoft",
			"com.apple",
			"org.mozilla",
			"com.opera",
		},

		// ==================== 已知恶意包名（精确匹配） ====================
		KnownMalicious: []string{
			"com.example.spyware",
			"com.tracker.hidden",
			"net.stalkerware.app",
		},

		SpywareKeywords: []string{"spyware", "stalkerware", "keylogger", "spycam"},

		MessagingKeywords: []string{
			"message", "sms", "chat", "mail", "email",
			"notification", "messenger", "telegram", "signal", "whatsapp",
		},

		// ==================== 危险权限组合（按顺序，只取第一个） ====================
		PermissionCombos: []PermissionCombo{
			{Name: "sms_interception", Permissions: []string{PermReadSMS, PermReceiveSMS, PermSendSMS}},
			{Name: "audio_video_capture", Permissions: []string{PermRecordAudio, PermCamera}},
			{Name: "location_surveillance", Permissions: []string{PermAccessFineLocation, PermCamera, PermRecordAudio}},
			{Name: "call_monitoring", Permissions: []string{PermReadCallLog, PermProcessOutgoingCalls, PermRecordAudio}},
			{Name: "screen_and_notification", Permissions: []string{PermBindAccessibilityService, PermBindNotificationListener}},
		},

		DangerousPerms: make(map[string]string, len(dangerousPermissions)),
	}

	for _, p := range dangerousPermissions {
		rs.DangerousPermNames = append(rs.DangerousPermNames, p.Name)
		rs.DangerousPerms[p.Name] = p.Description
	}

	return rs
}

// DescribePermission 危险权限描述，未收录的返回 "Unknown permission"
func DescribePermission(name string) string {
	name = NormalizePermission(name)
	for _, p := range dangerousPermissions {
		if p.Name == name {
			return p.Description
		}
	}
	return UnknownPermissionDescription
}

// IsDangerousPermission 是否收录在危险权限字典中
func IsDangerousPermission(name string) bool {
	return DescribePermission(name) != UnknownPermissionDescription
}
