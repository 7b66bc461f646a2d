/***************************************************************
 *
 * Copyright (C) 2025, LabCAS Project, California Institute of Technology
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you
 * may not use this file except in compliance with the License.  You may
 * obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 ***************************************************************/

package param

// One variable per known configuration key. Defaults live in
// config.InitConfig; anything without a default there must be supplied by
// the operator's labcas.yaml or the environment.
var (
	Server_Port          = IntParam{"Server.Port"}
	Server_ExternalUrl   = StringParam{"Server.ExternalUrl"}
	Server_TlsSkipVerify = BoolParam{"Server.TlsSkipVerify"}

	Logging_Level = StringParam{"Logging.Level"}

	Ldap_UsersUrl           = StringParam{"Ldap.UsersUrl"}
	Ldap_GroupsUrl          = StringParam{"Ldap.GroupsUrl"}
	Ldap_AdminDn            = StringParam{"Ldap.AdminDn"}
	Ldap_AdminPassword      = StringParam{"Ldap.AdminPassword"}
	Ldap_UserFilter         = StringParam{"Ldap.UserFilter"}
	Ldap_GroupFilter        = StringParam{"Ldap.GroupFilter"}
	Ldap_InsecureSkipVerify = BoolParam{"Ldap.InsecureSkipVerify"}
	Ldap_GroupCacheTtl      = DurationParam{"Ldap.GroupCacheTtl"}

	Solr_Url     = StringParam{"Solr.Url"}
	Solr_MaxRows = IntParam{"Solr.MaxRows"}

	Access_SuperOwnerPrincipal  = StringParam{"Access.SuperOwnerPrincipal"}
	Access_PublicOwnerPrincipal = StringParam{"Access.PublicOwnerPrincipal"}
	Access_GuestDn              = StringParam{"Access.GuestDn"}

	Token_Secret   = StringParam{"Token.Secret"}
	Token_Issuer   = StringParam{"Token.Issuer"}
	Token_Audience = StringParam{"Token.Audience"}
	Token_Lifetime = DurationParam{"Token.Lifetime"}

	Session_Ttl           = DurationParam{"Session.Ttl"}
	Session_SweepInterval = DurationParam{"Session.SweepInterval"}

	Cookie_SigningKeyFile = StringParam{"Cookie.SigningKeyFile"}
	Cookie_MaxAge         = IntParam{"Cookie.MaxAge"}

	Download_BaseUrl       = StringParam{"Download.BaseUrl"}
	Download_AuditDir      = StringParam{"Download.AuditDir"}
	Download_PathPrefixMap = StringSliceParam{"Download.PathPrefixMap"}

	S3_Region      = StringParam{"S3.Region"}
	S3_Bucket      = StringParam{"S3.Bucket"}
	S3_Profile     = StringParam{"S3.Profile"}
	S3_UrlLifetime = DurationParam{"S3.UrlLifetime"}

	Zipper_Url = StringParam{"Zipper.Url"}

	Workflow_StagingDir = StringParam{"Workflow.StagingDir"}
	Workflow_ArchiveDir = StringParam{"Workflow.ArchiveDir"}

	Viewer_OhifSubmitUrl  = StringParam{"Viewer.OhifSubmitUrl"}
	Viewer_OhifViewUrl    = StringParam{"Viewer.OhifViewUrl"}
	Viewer_QuipSubmitUrl  = StringParam{"Viewer.QuipSubmitUrl"}
	Viewer_QuipViewUrl    = StringParam{"Viewer.QuipViewUrl"}
	Viewer_QuipExtensions = StringSliceParam{"Viewer.QuipExtensions"}
)
