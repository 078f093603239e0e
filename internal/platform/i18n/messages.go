package i18n

var thai = map[string]string{
	// generic
	"invalid request":             "คำขอไม่ถูกต้อง",
	"invalid id":                  "รหัสไม่ถูกต้อง",
	"internal error":              "เกิดข้อผิดพลาดภายในระบบ",
	"authentication failed":       "ชื่อผู้ใช้หรือรหัสผ่านไม่ถูกต้อง",
	"account disabled":            "บัญชีถูกระงับการใช้งาน",
	"missing bearer token":        "กรุณาเข้าสู่ระบบ",
	"invalid token":               "โทเคนไม่ถูกต้องหรือหมดอายุ",
	"forbidden":                   "ไม่มีสิทธิ์ดำเนินการ",
	"account already exists":      "มีบัญชีนี้อยู่แล้ว",
	"account not found":           "ไม่พบบัญชีผู้ใช้",
	"unknown role":                "ไม่รู้จักบทบาทผู้ใช้",
	"concurrent update, retry":    "ข้อมูลถูกแก้ไขพร้อมกัน กรุณาลองใหม่",
	"duplicate entry":             "ข้อมูลซ้ำ",
	"referenced record not found": "ไม่พบข้อมูลที่อ้างอิง",
	"file too large":              "ไฟล์มีขนาดใหญ่เกินไป",
	"unsupported image":           "ไม่รองรับไฟล์รูปภาพนี้",
	"route not found":             "ไม่พบเส้นทางที่เรียก",

	// inventory
	"product not found":                            "ไม่พบอุปกรณ์",
	"product is not available":                     "อุปกรณ์ไม่ว่าง",
	"insufficient stock":                           "จำนวนคงเหลือไม่เพียงพอ",
	"product is not borrowed":                      "อุปกรณ์ไม่ได้ถูกยืมอยู่",
	"bulk items cannot be returned":                "อุปกรณ์ประเภทจำนวนมากไม่สามารถคืนได้",
	"restock applies to bulk items only":           "การเติมสต็อกใช้ได้กับอุปกรณ์ประเภทจำนวนมากเท่านั้น",
	"quantity must be > 0":                         "จำนวนต้องมากกว่า 0",
	"unique items are requisitioned one at a time": "อุปกรณ์ชิ้นเดียวเบิกได้ครั้งละ 1 ชิ้น",
	"signature is required":                        "กรุณาลงลายมือชื่อ",
	"name is required":                             "กรุณากรอกชื่อ",
	"room is required":                             "กรุณากรอกห้อง",
	"phone is required":                            "กรุณากรอกเบอร์โทรศัพท์",
	"reason is required":                           "กรุณากรอกเหตุผล",
	"invalid product type":                         "ประเภทอุปกรณ์ไม่ถูกต้อง",
	"invalid product status":                       "สถานะอุปกรณ์ไม่ถูกต้อง",
	"category not found":                           "ไม่พบหมวดหมู่",
	"category is disabled":                         "หมวดหมู่ถูกปิดใช้งาน",
	"code is required":                             "กรุณากรอกรหัส",
	"category code already exists":                 "รหัสหมวดหมู่นี้มีอยู่แล้ว",
	"stock id already exists":                      "รหัสสต็อกนี้มีอยู่แล้ว",
	"unknown stock operation":                      "ไม่รู้จักรายการเคลื่อนไหวสต็อก",

	// repairs
	"ticket not found":                         "ไม่พบใบแจ้งซ่อม",
	"description is required":                  "กรุณากรอกรายละเอียดปัญหา",
	"at least one image is required":           "กรุณาแนบรูปภาพอย่างน้อย 1 รูป",
	"at most 5 images are allowed":             "แนบรูปภาพได้ไม่เกิน 5 รูป",
	"invalid zone":                             "โซนไม่ถูกต้อง",
	"invalid repair status":                    "สถานะงานซ่อมไม่ถูกต้อง",
	"illegal status transition":                "ไม่สามารถเปลี่ยนสถานะได้",
	"technician note is required to complete":  "กรุณากรอกบันทึกของช่างก่อนปิดงาน",
	"completion image is required to complete": "กรุณาแนบรูปภาพหลังซ่อมก่อนปิดงาน",
	"ticket is cancelled":                      "ใบแจ้งซ่อมถูกยกเลิกแล้ว",

	// photography
	"job not found":                      "ไม่พบงานถ่ายภาพ",
	"title is required":                  "กรุณากรอกชื่องาน",
	"location is required":               "กรุณากรอกสถานที่",
	"start time must be before end time": "เวลาเริ่มต้องก่อนเวลาสิ้นสุด",
	"at least one assignee is required":  "กรุณาเลือกผู้รับผิดชอบอย่างน้อย 1 คน",
	"unknown assignee":                   "ไม่พบผู้รับผิดชอบที่เลือก",
	"booking already imported":           "การจองนี้ถูกนำเข้าแล้ว",
	"drive link is required":             "กรุณาแนบลิงก์ Google Drive",
	"job is not assigned to you":         "งานนี้ไม่ได้มอบหมายให้คุณ",
	"job is already being submitted":     "งานนี้กำลังถูกส่งอยู่",
	"job is no longer open":              "งานนี้ถูกปิดไปแล้ว",

	// videos
	"video not found":       "ไม่พบวิดีโอ",
	"video url is required": "กรุณากรอกลิงก์วิดีโอ",
}
