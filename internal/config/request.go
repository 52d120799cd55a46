package config

import (
	"fmt"
	"os"

	"events-report/internal/model"

	"sigs.k8s.io/yaml"
)

// LoadRequestFile
//
// 시작 시 적용할 reporting 요청을 yaml(또는 json) 파일에서 읽는다.
//
//	radio:
//	  type: 5G
//	  if_name: wlan1
//	request:
//	  reporting_interval: 60
//	  reporting_count: 0
//
// request 가 비어 있는 파일도 에러 없이 반환한다. 거절 여부는 reporter 가 판단한다.
func LoadRequestFile(path string) (*model.RequestEnvelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}

	var env model.RequestEnvelope
	if err := yaml.UnmarshalStrict(data, &env); err != nil {
		return nil, fmt.Errorf("parse request file %s: %w", path, err)
	}
	return &env, nil
}
