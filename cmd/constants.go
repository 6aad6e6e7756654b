/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

const (
	CONFIG_FILE_ENV_VAR     = "PLACE_EXPORTER_CONFIG_FILE"
	DB_URI_ENV_VAR          = "PLACE_EXPORTER_DB_URI"
	DEFAULT_CONFIG_NAME     = "place-exporter-config"
	DEFAULT_LOG_DIR         = "/var/log/place-exporter"
	DEFAULT_LOG_LEVEL       = "info"
	EXPORT_CONFIG_SECTION   = "export"
	LOG_FILE_MAX_SIZE_MB    = 50
	LOG_FILE_MAX_BACKUPS    = 5
	PROGRESS_BAR_REFRESH_MS = 200
)
