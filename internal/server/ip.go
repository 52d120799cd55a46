package server

import (
	"net"
	"net/http"
	"strings"
)

// safeParseIP:
//   - 공백/빈 값 대응
//   - 잘못된 값이 들어오면 nil 반환
func safeParseIP(s string) net.IP {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return net.ParseIP(s)
}

// ------------------------------------------------------------
// sourceAddr:
//
// 요청을 보낸 쪽(controller / producer)의 주소. 로그 용도.
// 우선순위:
//  1. X-Forwarded-For 의 첫 번째 유효 IP (reverse proxy 뒤)
//  2. X-Real-IP
//  3. RemoteAddr
//
// 같은 장비 / 내부망에서 들어오므로 private 주소도 그대로 쓴다.
// ------------------------------------------------------------
func sourceAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := safeParseIP(part); ip != nil {
				return ip.String()
			}
		}
	}

	if ip := safeParseIP(r.Header.Get("X-Real-IP")); ip != nil {
		return ip.String()
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if ip := safeParseIP(host); ip != nil {
			return ip.String()
		}
	}

	return r.RemoteAddr
}
