package locales

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	yamlDecodeErrorTemplateConstant = "unable to decode translation document: %w"
	yamlEncodeErrorTemplateConstant = "unable to encode merged document: %w"
)

// mergeTranslationDocuments deep-merges the bundle document over the theme
// document and returns the merged YAML. Bundle scalars replace theme scalars;
// nested mappings merge key by key so theme-only keys survive.
func mergeTranslationDocuments(themeDocument []byte, bundleDocument []byte) ([]byte, error) {
	themeMapping := map[string]any{}
	if unmarshalError := yaml.Unmarshal(themeDocument, &themeMapping); unmarshalError != nil {
		return nil, fmt.Errorf(yamlDecodeErrorTemplateConstant, unmarshalError)
	}

	bundleMapping := map[string]any{}
	if unmarshalError := yaml.Unmarshal(bundleDocument, &bundleMapping); unmarshalError != nil {
		return nil, fmt.Errorf(yamlDecodeErrorTemplateConstant, unmarshalError)
	}

	mergedMapping := deepMergeMappings(themeMapping, bundleMapping)

	mergedDocument, marshalError := yaml.Marshal(mergedMapping)
	if marshalError != nil {
		return nil, fmt.Errorf(yamlEncodeErrorTemplateConstant, marshalError)
	}
	return mergedDocument, nil
}

func deepMergeMappings(baseMapping map[string]any, overlayMapping map[string]any) map[string]any {
	mergedMapping := make(map[string]any, len(baseMapping)+len(overlayMapping))
	for key, baseValue := range baseMapping {
		mergedMapping[key] = baseValue
	}

	for key, overlayValue := range overlayMapping {
		baseValue, keyExists := mergedMapping[key]
		if !keyExists {
			mergedMapping[key] = overlayValue
			continue
		}

		baseChild, baseIsMapping := baseValue.(map[string]any)
		overlayChild, overlayIsMapping := overlayValue.(map[string]any)
		if baseIsMapping && overlayIsMapping {
			mergedMapping[key] = deepMergeMappings(baseChild, overlayChild)
			continue
		}

		mergedMapping[key] = overlayValue
	}

	return mergedMapping
}
