package logger

// RedactPhone masks the middle of a phone number for safe logging.
// "13812345678" → "138****5678"
// Values with fewer than 7 digits are fully masked: "12345" → "****"
func RedactPhone(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) < 7 {
		return "****"
	}
	tail := digits[len(digits)-4:]
	head := digits[:3]
	if len(digits) > 11 {
		head = digits[len(digits)-11 : len(digits)-8]
	}
	return string(head) + "****" + string(tail)
}
